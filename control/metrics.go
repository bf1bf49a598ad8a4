// control/metrics.go
// Author: momentics <momentics@gmail.com>
//
// Runtime counters and metrics registry.

package control

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters are updated by the scheduler and the storage layer. All fields
// are safe to read from any goroutine.
type Counters struct {
	ContextSwitches  atomic.Int64
	Preemptions      atomic.Int64
	ThreadsCreated   atomic.Int64
	ThreadsExited    atomic.Int64
	ThreadsReclaimed atomic.Int64
	MisuseFaults     atomic.Int64
	PagesAllocated   atomic.Int64
	PagesReleased    atomic.Int64
	PagesCopied      atomic.Int64 // copy-on-write privatizations
}

// Snapshot returns the counters as a flat map.
func (c *Counters) Snapshot() map[string]any {
	return map[string]any{
		"sched.context_switches":  c.ContextSwitches.Load(),
		"sched.preemptions":       c.Preemptions.Load(),
		"sched.threads_created":   c.ThreadsCreated.Load(),
		"sched.threads_exited":    c.ThreadsExited.Load(),
		"sched.threads_reclaimed": c.ThreadsReclaimed.Load(),
		"tls.misuse_faults":       c.MisuseFaults.Load(),
		"tls.pages_allocated":     c.PagesAllocated.Load(),
		"tls.pages_released":      c.PagesReleased.Load(),
		"tls.pages_copied":        c.PagesCopied.Load(),
	}
}

// MetricsRegistry holds named metrics plus the counters of one runtime.
type MetricsRegistry struct {
	mu       sync.RWMutex
	metrics  map[string]any
	counters *Counters
	updated  time.Time
}

// NewMetricsRegistry creates a registry exporting counters.
func NewMetricsRegistry(counters *Counters) *MetricsRegistry {
	if counters == nil {
		counters = &Counters{}
	}
	return &MetricsRegistry{
		metrics:  make(map[string]any),
		counters: counters,
	}
}

// Counters returns the live counters.
func (mr *MetricsRegistry) Counters() *Counters { return mr.counters }

// Set sets or updates a metric key.
func (mr *MetricsRegistry) Set(key string, value any) {
	mr.mu.Lock()
	mr.metrics[key] = value
	mr.updated = time.Now()
	mr.mu.Unlock()
}

// GetSnapshot returns the named metrics merged with the counters. Once a
// named metric has been set, "metrics.updated_at" holds the time of the
// latest Set.
func (mr *MetricsRegistry) GetSnapshot() map[string]any {
	out := mr.counters.Snapshot()
	mr.mu.RLock()
	defer mr.mu.RUnlock()
	for k, v := range mr.metrics {
		out[k] = v
	}
	if !mr.updated.IsZero() {
		out["metrics.updated_at"] = mr.updated
	}
	return out
}
