package testutil

import (
	"log"
	"testing"
)

type testWriter struct {
	t *testing.T
}

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Logf("%s", p)
	return len(p), nil
}

// TestLogger returns a logger routed through the test's own log buffer,
// so output surfaces only with -v or on failure.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(testWriter{t}, "[devchat] ", log.LstdFlags)
}
