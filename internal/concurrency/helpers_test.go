package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/control"
)

// exitLog records thread exits and terminate requests instead of ending
// the test binary.
type exitLog struct {
	mu     sync.Mutex
	values map[api.ThreadID]any
	codes  []int
}

func (l *exitLog) onExit(id api.ThreadID, v any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.values[id] = v
}

func (l *exitLog) terminate(code int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.codes = append(l.codes, code)
}

func (l *exitLog) exited(id api.ThreadID) (any, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	v, ok := l.values[id]
	return v, ok
}

func newTestScheduler(t *testing.T, interval time.Duration) (*Scheduler, *exitLog) {
	t.Helper()
	log := &exitLog{values: make(map[api.ThreadID]any)}
	cfg := control.DefaultConfig()
	cfg.PreemptInterval = interval
	cfg.OnExit = log.onExit
	cfg.Terminate = log.terminate
	s, err := NewScheduler(cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewScheduler: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, log
}

// yieldUntil runs the calling thread as a scheduler participant until cond
// holds.
func yieldUntil(t *testing.T, s *Scheduler, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not reached")
		}
		s.Yield()
	}
}
