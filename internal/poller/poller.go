// Package poller implements the client-side refresh scheduler: a fixed
// cadence re-fetch that only runs while the caller is idle. Mutations in
// flight pause the cadence so a stale response cannot interleave with an
// optimistic update; there is no push channel, staleness is bounded by
// the interval.
package poller

import (
	"context"
	"log"
	"sync"
	"time"
)

const DefaultInterval = 5 * time.Second

// FetchFunc re-fetches the watched state. Errors are logged and the
// cadence continues; a tick is fire-and-forget.
type FetchFunc func(ctx context.Context) error

type Poller struct {
	log      *log.Logger
	interval time.Duration
	fetch    FetchFunc

	pause    chan struct{}
	resume   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	stop     chan struct{}
}

func New(logger *log.Logger, interval time.Duration, fetch FetchFunc) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}

	return &Poller{
		log:      logger,
		interval: interval,
		fetch:    fetch,
		pause:    make(chan struct{}),
		resume:   make(chan struct{}),
		done:     make(chan struct{}),
		stop:     make(chan struct{}),
	}
}

// Run drives the loop until the context is cancelled or Stop is called.
// Fetches run on this goroutine, so a slow fetch never overlaps the next
// tick.
func (p *Poller) Run(ctx context.Context) {
	defer close(p.done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// count of in-flight mutations; the ticker only runs at zero
	inFlight := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.stop:
			return
		case <-p.pause:
			if inFlight == 0 {
				ticker.Stop()
			}
			inFlight++
		case <-p.resume:
			if inFlight > 0 {
				inFlight--
			}
			if inFlight == 0 {
				ticker.Reset(p.interval)
			}
		case <-ticker.C:
			if inFlight > 0 {
				// a tick already queued before the pause landed
				continue
			}
			if err := p.fetch(ctx); err != nil {
				p.log.Println("poll:", err)
			}
		}
	}
}

// Pause suspends the cadence for one in-flight mutation. Safe to call
// after the loop has exited.
func (p *Poller) Pause() {
	select {
	case p.pause <- struct{}{}:
	case <-p.done:
	}
}

// Resume settles one in-flight mutation; the cadence restarts when none
// remain.
func (p *Poller) Resume() {
	select {
	case p.resume <- struct{}{}:
	case <-p.done:
	}
}

// Stop tears the loop down and waits for it to exit. Idempotent; call
// only once Run has been started.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() {
		close(p.stop)
	})
	<-p.done
}
