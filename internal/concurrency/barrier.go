// File: internal/concurrency/barrier.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Reusable barrier for logical threads.

package concurrency

import "github.com/momentics/hioload-green/api"

// Barrier releases its waiters once required threads have arrived, then
// resets for the next cycle. The thread whose arrival completes a cycle is
// the serial one.
type Barrier struct {
	s         *Scheduler
	required  int
	arrived   int
	destroyed bool
	waiters   *waitQueue
}

var _ api.Barrier = (*Barrier)(nil)

// NewBarrier creates a barrier for count threads.
func NewBarrier(s *Scheduler, count int) (*Barrier, error) {
	if count <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "barrier: count must be positive").
			WithContext("count", count)
	}
	return &Barrier{s: s, required: count, waiters: newWaitQueue()}, nil
}

// Wait blocks until the cycle completes.
func (b *Barrier) Wait() (api.BarrierResult, error) {
	b.s.EnterCritical()
	defer b.s.LeaveCritical()
	if b.destroyed {
		return api.BarrierOrdinary, errDestroyed("barrier")
	}
	if b.arrived+1 > b.required {
		return api.BarrierOrdinary, api.NewError(api.ErrCodeInvalidArgument, "barrier: too many arrivals").
			WithContext("required", b.required)
	}
	b.arrived++
	if b.arrived < b.required {
		b.waiters.push(b.s.currentLocked())
		b.s.blockLocked()
		return api.BarrierOrdinary, nil
	}

	for t := b.waiters.pop(); t != nil; t = b.waiters.pop() {
		b.s.wakeLocked(t)
	}
	b.arrived = 0
	return api.BarrierSerial, nil
}

// Destroy retires b. It fails while threads are waiting.
func (b *Barrier) Destroy() error {
	b.s.EnterCritical()
	defer b.s.LeaveCritical()
	if b.destroyed {
		return errDestroyed("barrier")
	}
	if n := b.waiters.Len(); n > 0 {
		return api.NewError(api.ErrCodeResourceBusy, "barrier: destroy with waiters").WithContext("waiters", n)
	}
	b.destroyed = true
	return nil
}

// Required returns the participant count of one cycle.
func (b *Barrier) Required() int { return b.required }
