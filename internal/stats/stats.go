package stats

import (
	"encoding/json"
	"expvar"
	"net/http"
	"time"
)

// Metric names recorded by the chat service.
const (
	ChannelsCreated = "ChannelsCreated"
	ChannelsDeleted = "ChannelsDeleted"
	MessagesPosted  = "MessagesPosted"
	SearchErrors    = "SearchErrors"
)

type Provider interface {
	Incr(name string)
	Decr(name string)
	RegisterMetric(name string)
	Run()
}

// Recorder aggregates counters through a single goroutine and publishes
// them as expvars on /debug/vars.
type Recorder struct {
	vars       *expvar.Map
	updateChan chan update
}

type update struct {
	name  string
	value int
}

func NewRecorder(mux *http.ServeMux) *Recorder {
	// expvar names are process-global, reuse the map if already published
	vars, ok := expvar.Get("devchat-stats").(*expvar.Map)
	if !ok {
		vars = expvar.NewMap("devchat-stats")
	}

	rec := &Recorder{
		vars:       vars,
		updateChan: make(chan update, 512),
	}
	mux.Handle("GET /debug/vars", http.HandlerFunc(rec.expvarHandler))

	startTime := time.Now()
	rec.vars.Set("Uptime", expvar.Func(func() any {
		return time.Since(startTime).Milliseconds()
	}))

	return rec
}

func (rec *Recorder) expvarHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	expvarData := make(map[string]any)
	rec.vars.Do(func(kv expvar.KeyValue) {
		var value any
		json.Unmarshal([]byte(kv.Value.String()), &value)
		expvarData[kv.Key] = value
	})

	json.NewEncoder(w).Encode(expvarData)
}

func (rec *Recorder) apply() {
	for u := range rec.updateChan {
		metric := rec.vars.Get(u.name)
		if metric == nil {
			panic("metric not found: " + u.name)
		}

		metric.(*expvar.Int).Add(int64(u.value))
	}
}

func (rec *Recorder) Incr(name string) {
	rec.updateChan <- update{name: name, value: 1}
}

func (rec *Recorder) Decr(name string) {
	rec.updateChan <- update{name: name, value: -1}
}

func (rec *Recorder) RegisterMetric(name string) {
	rec.vars.Set(name, expvar.NewInt(name))
}

func (rec *Recorder) Run() {
	go rec.apply()
}

func (rec *Recorder) Stop() {
	close(rec.updateChan)
}
