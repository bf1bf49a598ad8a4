// File: internal/concurrency/timer.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Periodic preemption event.

package concurrency

import (
	"sync/atomic"
	"time"
)

// preemptTimer raises the pending flag every interval. It never touches
// scheduler state; the running thread consumes the flag at a safepoint.
type preemptTimer struct {
	stopCh chan struct{}
	done   chan struct{}
	ticks  atomic.Int64
}

func startPreemptTimer(interval time.Duration, pending *atomic.Bool) *preemptTimer {
	pt := &preemptTimer{
		stopCh: make(chan struct{}),
		done:   make(chan struct{}),
	}
	go pt.run(interval, pending)
	return pt
}

func (pt *preemptTimer) run(interval time.Duration, pending *atomic.Bool) {
	defer close(pt.done)
	tk := time.NewTicker(interval)
	defer tk.Stop()
	for {
		select {
		case <-tk.C:
			pt.ticks.Add(1)
			pending.Store(true)
		case <-pt.stopCh:
			return
		}
	}
}

// stop disarms the timer and waits for its goroutine to finish.
func (pt *preemptTimer) stop() {
	close(pt.stopCh)
	<-pt.done
}
