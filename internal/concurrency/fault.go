// File: internal/concurrency/fault.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Memory fault dispatch for logical threads.

package concurrency

import (
	"log"
	"runtime"
	"runtime/debug"

	"github.com/momentics/hioload-green/api"
)

// FaultHandler claims memory faults raised by a logical thread.
type FaultHandler interface {
	// Owns reports whether addr lies in memory the handler protects.
	Owns(addr uintptr) bool
}

type faultSlot struct {
	h FaultHandler
}

// addressable is satisfied by the runtime.Error values produced by
// debug.SetPanicOnFault.
type addressable interface {
	Addr() uintptr
}

// SetFaultHandler installs h for all threads of this scheduler. A nil h
// removes the handler.
func (s *Scheduler) SetFaultHandler(h FaultHandler) {
	if h == nil {
		s.fault.Store(nil)
		return
	}
	s.fault.Store(&faultSlot{h: h})
}

// FaultHandlerInstalled reports whether a handler is set.
func (s *Scheduler) FaultHandlerInstalled() bool {
	return s.fault.Load() != nil
}

// recoverFault runs deferred at the top of every thread goroutine, main
// included when it runs under Main. A fault on memory claimed by the
// installed handler terminates only the faulting thread. Any other panic
// continues to unwind and takes the process down.
func (s *Scheduler) recoverFault(t *Thread) {
	r := recover()
	if r == nil {
		return
	}
	if fa, ok := r.(addressable); ok {
		if slot := s.fault.Load(); slot != nil && slot.h.Owns(fa.Addr()) {
			s.counters.MisuseFaults.Add(1)
			log.Printf("[sched] thread %d: fault at %#x: %v", t.id, fa.Addr(), api.ErrMisuseFatal)
			s.EnterCritical()
			s.exitLocked(t, api.ErrMisuseFatal)
			runtime.Goexit()
		}
	}
	debug.SetPanicOnFault(false)
	panic(r)
}
