// File: internal/concurrency/mutex.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Blocking mutex for logical threads.

package concurrency

import "github.com/momentics/hioload-green/api"

// Mutex is a binary lock whose contenders block in FIFO order. Ownership
// is not tracked: any thread may unlock. On unlock with waiters the lock
// passes straight to the oldest waiter and is never observed free.
type Mutex struct {
	s         *Scheduler
	locked    bool
	destroyed bool
	waiters   *waitQueue
}

var _ api.Mutex = (*Mutex)(nil)

// NewMutex returns an unlocked mutex bound to s.
func NewMutex(s *Scheduler) *Mutex {
	return &Mutex{s: s, waiters: newWaitQueue()}
}

// Lock acquires m, blocking the calling thread while it is held.
func (m *Mutex) Lock() error {
	m.s.EnterCritical()
	defer m.s.LeaveCritical()
	if m.destroyed {
		return errDestroyed("mutex")
	}
	if !m.locked {
		m.locked = true
		return nil
	}
	m.waiters.push(m.s.currentLocked())
	m.s.blockLocked()
	// Woken by Unlock: the lock was handed over while we waited.
	return nil
}

// Unlock releases m or hands it to the oldest waiter.
func (m *Mutex) Unlock() error {
	m.s.EnterCritical()
	defer m.s.LeaveCritical()
	if m.destroyed {
		return errDestroyed("mutex")
	}
	if !m.locked {
		return api.NewError(api.ErrCodeInvalidArgument, "mutex: unlock of unlocked mutex")
	}
	if t := m.waiters.pop(); t != nil {
		m.s.wakeLocked(t)
		return nil
	}
	m.locked = false
	return nil
}

// Destroy retires m. It fails while threads are waiting.
func (m *Mutex) Destroy() error {
	m.s.EnterCritical()
	defer m.s.LeaveCritical()
	if m.destroyed {
		return errDestroyed("mutex")
	}
	if n := m.waiters.Len(); n > 0 {
		return api.NewError(api.ErrCodeResourceBusy, "mutex: destroy with waiters").WithContext("waiters", n)
	}
	m.destroyed = true
	m.locked = false
	return nil
}

// Waiters returns the number of blocked contenders.
func (m *Mutex) Waiters() int {
	m.s.EnterCritical()
	defer m.s.LeaveCritical()
	return m.waiters.Len()
}

func errDestroyed(kind string) error {
	return api.NewError(api.ErrCodeInvalidArgument, kind+": use after destroy")
}
