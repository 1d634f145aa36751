package stats

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRecorder(t *testing.T) {
	mux := http.NewServeMux()
	rec := NewRecorder(mux)
	assert.NotNil(t, rec, "expected Recorder to be non-nil")
	assert.NotNil(t, rec.updateChan, "expected updateChan to be initialized")
	handler, pattern := mux.Handler(&http.Request{URL: &url.URL{Path: "/debug/vars"}, Method: http.MethodGet})
	assert.NotNil(t, handler, "expected handler for /debug/vars to be set")
	assert.Equal(t, "GET /debug/vars", pattern, "expected handler to be registered for GET method on /debug/vars")
}

func TestRecorderCounters(t *testing.T) {
	rec := NewRecorder(http.NewServeMux())
	rec.RegisterMetric(MessagesPosted)
	rec.Run()
	defer rec.Stop()

	rec.Incr(MessagesPosted)
	rec.Incr(MessagesPosted)
	rec.Decr(MessagesPosted)

	assert.Eventually(t, func() bool {
		return rec.vars.Get(MessagesPosted).String() == "1"
	}, time.Second, 10*time.Millisecond, "expected counter to settle at 1")
}
