// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

// ThreadID identifies a logical thread. IDs are assigned monotonically and
// never reused within one runtime. The thread that first initializes the
// runtime is always MainThreadID.
type ThreadID uint64

// MainThreadID is the identity of the flow that initialized the scheduler.
const MainThreadID ThreadID = 0

// ThreadStatus enumerates the state of a logical thread.
type ThreadStatus int

const (
	StatusReady ThreadStatus = iota
	StatusRunning
	StatusBlocked
	StatusExited
)

func (s ThreadStatus) String() string {
	switch s {
	case StatusReady:
		return "ready"
	case StatusRunning:
		return "running"
	case StatusBlocked:
		return "blocked"
	case StatusExited:
		return "exited"
	default:
		return "unknown"
	}
}

// EntryFunc is the body of a logical thread. Returning from it is
// equivalent to calling Exit(nil).
type EntryFunc func(arg any)

// BarrierResult tells a released barrier participant whether it was the
// distinguished serial thread.
type BarrierResult int

const (
	BarrierOrdinary BarrierResult = iota
	BarrierSerial
)

func (r BarrierResult) String() string {
	if r == BarrierSerial {
		return "serial"
	}
	return "ordinary"
}

// ThreadInfo is a point-in-time description of one run-queue entry.
type ThreadInfo struct {
	ID      ThreadID
	Status  ThreadStatus
	Current bool
}

// RegionInfo describes a thread-local storage region.
type RegionInfo struct {
	Owner       ThreadID
	Size        int
	Pages       int
	SharedPages int // pages with a reference count above one
}
