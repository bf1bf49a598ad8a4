// Package api
// Author: momentics
//
// Thread and synchronization contracts for the green-thread runtime.

package api

// Threads creates, identifies and terminates logical threads.
type Threads interface {
	// Create starts a new logical thread running entry(arg).
	Create(entry EntryFunc, arg any) (ThreadID, error)

	// Exit terminates the calling logical thread. It never returns.
	Exit(value any)

	// Self returns the identity of the calling logical thread.
	Self() ThreadID

	// Yield gives up the remainder of the current time slice.
	Yield()
}

// Mutex is a blocking binary lock with FIFO hand-off to waiters.
type Mutex interface {
	Lock() error
	Unlock() error
	Destroy() error
}

// Barrier is a rendezvous point for a fixed number of threads.
type Barrier interface {
	Wait() (BarrierResult, error)
	Destroy() error
}

// LocalStorage is per-thread storage addressed by the calling thread.
type LocalStorage interface {
	Create(size int) error
	Destroy() error
	Read(offset, length int, buf []byte) error
	Write(offset, length int, buf []byte) error
	Clone(src ThreadID) error
}
