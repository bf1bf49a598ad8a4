// File: internal/concurrency/context.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Execution context: suspend, resume and bootstrap of logical threads.

package concurrency

import "github.com/momentics/hioload-green/api"

// execContext is the saved state of a suspended logical thread. The state
// itself lives on the backing goroutine's stack; the context only carries
// the resume token and, before the first resume, the bootstrap record.
type execContext struct {
	wake chan struct{}

	// bootstrap record, consumed by the first resume
	entry   api.EntryFunc
	arg     any
	start   func()
	started bool
}

func newExecContext() *execContext {
	// One slot: a resume may land before the owner reaches park.
	return &execContext{wake: make(chan struct{}, 1)}
}

// bootstrap prepares a context whose first resume runs start. start is the
// trampoline that hands the recorded argument to the recorded entry point.
func (c *execContext) bootstrap(entry api.EntryFunc, arg any, start func()) {
	c.entry = entry
	c.arg = arg
	c.start = start
	c.started = false
}

// resume transfers control to the context. It does not wait for the target
// to run; the caller must park or terminate right after.
func (c *execContext) resume() {
	if c.start != nil && !c.started {
		c.started = true
		go c.start()
		return
	}
	c.wake <- struct{}{}
}

// park suspends the calling goroutine until the context is resumed.
func (c *execContext) park() {
	<-c.wake
}
