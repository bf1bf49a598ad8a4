// File: internal/concurrency/thread.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Thread control block.

package concurrency

import "github.com/momentics/hioload-green/api"

// Thread is the control block of one logical thread. All fields are
// guarded by the scheduler critical section.
type Thread struct {
	id     api.ThreadID
	status api.ThreadStatus
	stack  api.Stack // nil for main and after exit
	ctx    *execContext
	next   *Thread // run-queue successor
	value  any     // exit value
}

// ID returns the thread identity.
func (t *Thread) ID() api.ThreadID { return t.id }

func (t *Thread) info(current bool) api.ThreadInfo {
	return api.ThreadInfo{ID: t.id, Status: t.status, Current: current}
}
