// File: internal/concurrency/scheduler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Preemptive round-robin scheduler for logical threads.

package concurrency

import (
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/control"
	"github.com/momentics/hioload-green/pool"
)

// Scheduler owns the run queue, the thread registry and the preemption
// timer of one runtime. Independent schedulers do not share state.
//
// mu is the preemption mask: while it is held, no scheduling decision can
// be taken. It is released before the baton is handed over and re-acquired
// by a thread as soon as it is resumed.
type Scheduler struct {
	cfg      control.Config
	stacks   api.StackAllocator
	counters *control.Counters

	mu      sync.Mutex
	queue   runQueue
	threads map[api.ThreadID]*Thread
	current *Thread
	nextID  api.ThreadID
	started bool
	timer   *preemptTimer

	pending atomic.Bool
	fault   atomic.Pointer[faultSlot]
}

var _ api.Threads = (*Scheduler)(nil)

// NewScheduler creates an idle scheduler. Nothing is allocated and no timer
// is armed until the first Create.
func NewScheduler(cfg control.Config, stacks api.StackAllocator, counters *control.Counters) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if stacks == nil {
		stacks = pool.NewStackPool(cfg.StackSize, 0)
	}
	if counters == nil {
		counters = &control.Counters{}
	}
	return &Scheduler{
		cfg:      cfg,
		stacks:   stacks,
		counters: counters,
		threads:  make(map[api.ThreadID]*Thread),
	}, nil
}

// initLocked wraps the calling flow as the main thread and arms the timer.
func (s *Scheduler) initLocked() {
	main := &Thread{
		id:     api.MainThreadID,
		status: api.StatusRunning,
		ctx:    newExecContext(),
	}
	s.threads[main.id] = main
	s.queue.push(main)
	s.current = main
	s.nextID = api.MainThreadID + 1
	s.started = true
	if s.cfg.PreemptInterval > 0 {
		s.timer = startPreemptTimer(s.cfg.PreemptInterval, &s.pending)
		log.Printf("[sched] preemption armed every %v", s.cfg.PreemptInterval)
	}
}

// EnterCritical masks the preemption event.
func (s *Scheduler) EnterCritical() {
	s.mu.Lock()
}

// LeaveCritical lifts the mask and honours a preemption that became due
// while it was held.
func (s *Scheduler) LeaveCritical() {
	s.mu.Unlock()
	s.Safepoint()
}

// Safepoint reschedules if the preemption event has fired since the last
// scheduling decision. Long-running threads call it to stay preemptible.
func (s *Scheduler) Safepoint() {
	if !s.pending.Load() {
		return
	}
	s.mu.Lock()
	if !s.started || !s.pending.Swap(false) {
		s.mu.Unlock()
		return
	}
	s.counters.Preemptions.Add(1)
	s.schedule()
	s.mu.Unlock()
}

// Create starts a new thread running entry(arg). The new thread is READY
// and appended to the tail of the run queue; it first runs when the
// scheduler reaches it.
func (s *Scheduler) Create(entry api.EntryFunc, arg any) (api.ThreadID, error) {
	if entry == nil {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "sched: nil entry function")
	}
	s.EnterCritical()
	defer s.LeaveCritical()

	if !s.started {
		s.initLocked()
	}
	s.reapLocked()
	if len(s.threads) >= s.cfg.MaxThreads {
		return 0, api.NewError(api.ErrCodeResourceExhausted, "sched: thread table full").
			WithContext("max_threads", s.cfg.MaxThreads)
	}
	stack, err := s.stacks.Alloc(s.cfg.StackSize)
	if err != nil {
		return 0, fmt.Errorf("sched: allocate stack: %w", err)
	}

	t := &Thread{id: s.nextID, stack: stack, ctx: newExecContext()}
	s.nextID++
	t.ctx.bootstrap(entry, arg, func() { s.trampoline(t) })
	t.status = api.StatusReady
	s.queue.push(t)
	s.threads[t.id] = t
	s.counters.ThreadsCreated.Add(1)
	return t.id, nil
}

// trampoline is where a bootstrapped thread lands on its first resume.
// A normal return from entry falls through into exit.
func (s *Scheduler) trampoline(t *Thread) {
	debug.SetPanicOnFault(true)
	defer s.recoverFault(t)

	t.ctx.entry(t.ctx.arg)

	s.EnterCritical()
	s.exitLocked(t, nil)
}

// Main runs fn as the main thread with the same fault handling created
// threads get. It returns nil once fn returns. A claimed fault inside fn
// ends the main thread the way Exit would, and then Main never returns.
// It must be called from the flow that initialized the scheduler, or before
// any thread exists.
func (s *Scheduler) Main(fn func()) error {
	if fn == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "sched: nil main function")
	}
	s.EnterCritical()
	t := s.currentLocked()
	s.mu.Unlock()
	if t.id != api.MainThreadID {
		return api.NewError(api.ErrCodeInvalidArgument, "sched: Main called from a created thread").
			WithContext("thread", t.id)
	}

	prev := debug.SetPanicOnFault(true)
	defer debug.SetPanicOnFault(prev)
	defer s.recoverFault(t)
	fn()
	return nil
}

// Exit terminates the calling thread with value. It never returns. When
// the caller is the last thread that could ever run, the process ends.
func (s *Scheduler) Exit(value any) {
	s.EnterCritical()
	if !s.started {
		s.mu.Unlock()
		s.cfg.Terminate(0)
		runtime.Goexit()
	}
	s.exitLocked(s.current, value)
	runtime.Goexit()
}

// exitLocked retires t, the current thread, and hands control away. It is
// entered with mu held and returns with mu released; the caller must end
// its goroutine without touching runtime state.
func (s *Scheduler) exitLocked(t *Thread, value any) {
	t.status = api.StatusExited
	t.value = value
	if t.stack != nil {
		if err := s.stacks.Free(t.stack); err != nil {
			log.Printf("[sched] thread %d: release stack: %v", t.id, err)
		}
		t.stack = nil
	}
	s.counters.ThreadsExited.Add(1)
	if s.cfg.OnExit != nil {
		s.cfg.OnExit(t.id, value)
	}

	if !s.othersAliveLocked(t) {
		s.mu.Unlock()
		s.cfg.Terminate(0)
		return
	}
	s.schedule()
}

// Self returns the identity of the running thread.
func (s *Scheduler) Self() api.ThreadID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SelfLocked()
}

// SelfLocked is Self for callers already inside a critical section.
func (s *Scheduler) SelfLocked() api.ThreadID {
	if s.current == nil {
		return api.MainThreadID
	}
	return s.current.id
}

// Yield gives the remainder of the time slice to the next READY thread.
func (s *Scheduler) Yield() {
	s.mu.Lock()
	if s.started {
		s.schedule()
	}
	s.mu.Unlock()
}

// schedule saves the running thread and resumes the next READY one in
// round-robin order. It is called with mu held. When the running thread is
// later resumed, schedule returns to its caller with mu held again. When the
// running thread has exited, schedule returns with mu released and the
// thread is never resumed.
func (s *Scheduler) schedule() {
	cur := s.current
	if cur.status == api.StatusRunning {
		cur.status = api.StatusReady
	}

	next := s.pickLocked()
	if next == nil {
		s.deadlockLocked(cur)
	}
	if next == cur {
		cur.status = api.StatusRunning
		return
	}

	exiting := cur.status == api.StatusExited
	s.current = next
	next.status = api.StatusRunning
	s.counters.ContextSwitches.Add(1)
	s.mu.Unlock()

	next.ctx.resume()
	if exiting {
		return
	}
	cur.ctx.park()

	// Resumed: whoever handed us the baton already made us current.
	s.mu.Lock()
	s.current.status = api.StatusRunning
}

// pickLocked scans the queue starting after current for the first READY
// thread, wrapping around, and reclaims exited threads it passes. Current
// is chosen only when no other thread is READY.
func (s *Scheduler) pickLocked() *Thread {
	cur := s.current
	prev := cur
	for t := cur.next; t != cur; {
		next := t.next
		switch t.status {
		case api.StatusReady:
			return t
		case api.StatusExited:
			s.reclaimLocked(prev, t)
		default:
			prev = t
		}
		t = next
	}
	if cur.status == api.StatusReady {
		return cur
	}
	return nil
}

// reapLocked reclaims every exited thread except the current one.
func (s *Scheduler) reapLocked() {
	cur := s.current
	prev := cur
	for t := cur.next; t != cur; {
		next := t.next
		if t.status == api.StatusExited {
			s.reclaimLocked(prev, t)
		} else {
			prev = t
		}
		t = next
	}
}

func (s *Scheduler) reclaimLocked(prev, t *Thread) {
	s.queue.unlink(prev, t)
	delete(s.threads, t.id)
	s.counters.ThreadsReclaimed.Add(1)
}

func (s *Scheduler) othersAliveLocked(self *Thread) bool {
	for id, t := range s.threads {
		if id != self.id && t.status != api.StatusExited {
			return true
		}
	}
	return false
}

// deadlockLocked handles the state where no thread can run. It never
// returns: the process is terminated, and if the terminate hook returns
// the calling thread stays suspended forever.
func (s *Scheduler) deadlockLocked(cur *Thread) {
	exited := cur.status == api.StatusExited
	log.Printf("[sched] thread %d: %v", cur.id, api.ErrDeadlock)
	s.mu.Unlock()
	s.cfg.Terminate(2)
	if exited {
		runtime.Goexit()
	}
	select {}
}

// currentLocked returns the running thread, wrapping the caller as main
// when the scheduler has not started yet.
func (s *Scheduler) currentLocked() *Thread {
	if !s.started {
		s.initLocked()
	}
	return s.current
}

// blockLocked suspends the running thread until wakeLocked makes it READY.
func (s *Scheduler) blockLocked() {
	s.currentLocked().status = api.StatusBlocked
	s.schedule()
}

// wakeLocked makes a blocked thread eligible to run again.
func (s *Scheduler) wakeLocked(t *Thread) {
	if t.status == api.StatusBlocked {
		t.status = api.StatusReady
	}
}

// Snapshot lists the run queue in order.
func (s *Scheduler) Snapshot() []api.ThreadInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]api.ThreadInfo, 0, s.queue.Len())
	s.queue.each(func(t *Thread) {
		out = append(out, t.info(t == s.current))
	})
	return out
}

// Status reports the status of a thread that has not been reclaimed yet.
func (s *Scheduler) Status(id api.ThreadID) (api.ThreadStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.threads[id]
	if !ok {
		return 0, api.NewError(api.ErrCodeNotFound, "sched: no such thread").WithContext("id", id)
	}
	return t.status, nil
}

// Stats returns scheduler metrics.
func (s *Scheduler) Stats() map[string]any {
	s.mu.Lock()
	live := len(s.threads)
	var ticks int64
	if s.timer != nil {
		ticks = s.timer.ticks.Load()
	}
	s.mu.Unlock()

	out := s.counters.Snapshot()
	out["sched.live_threads"] = live
	out["sched.timer_ticks"] = ticks
	st := s.stacks.Stats()
	out["sched.stacks_in_use"] = st.InUse
	return out
}

// Close disarms the preemption timer. Threads are left as they are.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	t := s.timer
	s.timer = nil
	s.mu.Unlock()
	if t != nil {
		t.stop()
	}
	return nil
}
