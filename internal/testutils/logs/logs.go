// Package logs provides loggers recording their output for tests.
package logs

import (
	"bytes"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
)

// Recorder is a concurrency safe buffer of log lines.
type Recorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (r *Recorder) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.buf.Write(p)
}

// Lines returns recorded lines, formatted as "LEVEL message".
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := strings.TrimSuffix(r.buf.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Contains tells some line contains substr.
func (r *Recorder) Contains(substr string) bool {
	for _, l := range r.Lines() {
		if strings.Contains(l, substr) {
			return true
		}
	}
	return false
}

// New creates a logger at DEBUG level, writing into the returned Recorder.
func New() (echo.Logger, *Recorder) {
	rec := &Recorder{}
	l := log.New("test")
	l.SetHeader("${level}")
	l.SetLevel(log.DEBUG)
	l.SetOutput(rec)
	return l, rec
}
