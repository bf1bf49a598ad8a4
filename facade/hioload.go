// File: facade/hioload.go
// Unified facade layer for hioload-green library.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// This file defines the Runtime struct, which aggregates the scheduler, the
// synchronization primitives, thread-local storage and the control surface
// behind a single facade. Components are initialized from an immutable
// configuration; the scheduler itself starts lazily on the first Create.

package facade

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/momentics/hioload-green/adapters"
	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/control"
	"github.com/momentics/hioload-green/internal/concurrency"
	"github.com/momentics/hioload-green/internal/tls"
	"github.com/momentics/hioload-green/pool"
)

// Config holds parameters immutable per runtime.
type Config struct {
	MaxThreads      int           // Maximum live threads, main included
	StackSize       int           // Bytes reserved per created thread
	PreemptInterval time.Duration // Time slice; zero disables preemption
	EnableDebug     bool          // Whether to register runtime debug probes

	// Optional memory providers; nil selects the pool package defaults.
	Pages  api.PageAllocator
	Stacks api.StackAllocator

	// Terminate ends the process once no thread can run. Defaults to os.Exit.
	Terminate func(code int)
	// OnExit observes thread exits. It must not call back into the runtime.
	OnExit func(id api.ThreadID, value any)
}

// DefaultConfig returns default configuration values.
func DefaultConfig() *Config {
	return &Config{
		MaxThreads:      control.DefaultMaxThreads,
		StackSize:       control.DefaultStackSize,
		PreemptInterval: control.DefaultPreemptInterval,
		EnableDebug:     true,
	}
}

func (c *Config) runtimeConfig() control.Config {
	return control.Config{
		MaxThreads:      c.MaxThreads,
		StackSize:       c.StackSize,
		PreemptInterval: c.PreemptInterval,
		Terminate:       c.Terminate,
		OnExit:          c.OnExit,
	}
}

// Runtime is one independent green-thread runtime.
// It implements api.GracefulShutdown to release its timer.
type Runtime struct {
	sched    *concurrency.Scheduler
	store    *tls.Store
	control  *adapters.ControlAdapter
	counters *control.Counters
	pages    api.PageAllocator

	mu     sync.Mutex
	closed bool
}

var (
	_ api.GracefulShutdown = (*Runtime)(nil)
	_ api.Threads          = (*Runtime)(nil)
)

// New constructs a Runtime. No thread, timer or page exists until the
// first Create or storage call.
func New(cfg *Config) (*Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	rc := cfg.runtimeConfig()
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	r := &Runtime{counters: &control.Counters{}, pages: cfg.Pages}
	if r.pages == nil {
		r.pages = pool.DefaultPages()
	}
	stacks := cfg.Stacks
	if stacks == nil {
		stacks = pool.NewStackPool(rc.StackSize, 0)
	}

	sched, err := concurrency.NewScheduler(rc, stacks, r.counters)
	if err != nil {
		return nil, fmt.Errorf("scheduler init failure: %w", err)
	}
	r.sched = sched
	r.store = tls.NewStore(sched, r.pages, r.counters)
	r.control = adapters.NewControlAdapter(rc, r.counters)
	if cfg.EnableDebug {
		r.registerProbes()
	}
	return r, nil
}

func (r *Runtime) registerProbes() {
	r.control.RegisterDebugProbe("sched.threads", func() any { return r.sched.Snapshot() })
	r.control.RegisterDebugProbe("sched.stats", func() any { return r.sched.Stats() })
	r.control.RegisterDebugProbe("sched.fault_handler", func() any { return r.sched.FaultHandlerInstalled() })
	r.control.RegisterDebugProbe("tls.regions", func() any { return r.store.Regions() })
	r.control.RegisterDebugProbe("tls.page_size", func() any { return r.store.PageSize() })
	r.control.RegisterDebugProbe("tls.protected", func() any { return pool.Protected() })
	r.control.RegisterDebugProbe("pool.mapped_pages", func() any { return pool.MappedPages(r.pages) })
}

// Run executes main as the main thread, with direct access to protected
// storage ending only the main thread, as it does for created threads.
// Run returns once main returns; after such a fault it never returns.
func (r *Runtime) Run(main func()) error { return r.sched.Main(main) }

// Create starts a logical thread running entry(arg). Threads share one
// execution stream and switch only inside runtime calls: a thread that
// computes for long without calling Yield, Safepoint or another runtime
// operation is never preempted and starves the others.
func (r *Runtime) Create(entry api.EntryFunc, arg any) (api.ThreadID, error) {
	return r.sched.Create(entry, arg)
}

// Exit terminates the calling thread. It never returns.
func (r *Runtime) Exit(value any) { r.sched.Exit(value) }

// Self returns the identity of the calling thread.
func (r *Runtime) Self() api.ThreadID { return r.sched.Self() }

// Yield gives up the remainder of the time slice.
func (r *Runtime) Yield() { r.sched.Yield() }

// Safepoint lets a pending preemption take effect. Threads running long
// computations should call it periodically.
func (r *Runtime) Safepoint() { r.sched.Safepoint() }

// Status reports the status of a live or not yet reclaimed thread.
func (r *Runtime) Status(id api.ThreadID) (api.ThreadStatus, error) {
	return r.sched.Status(id)
}

// Snapshot lists the run queue.
func (r *Runtime) Snapshot() []api.ThreadInfo { return r.sched.Snapshot() }

// NewMutex returns an unlocked mutex.
func (r *Runtime) NewMutex() api.Mutex { return concurrency.NewMutex(r.sched) }

// NewBarrier returns a barrier for count threads.
func (r *Runtime) NewBarrier(count int) (api.Barrier, error) {
	b, err := concurrency.NewBarrier(r.sched, count)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// Storage returns the thread-local storage of this runtime.
func (r *Runtime) Storage() api.LocalStorage { return r.store }

// TLSCreate gives the calling thread a storage region of size bytes.
func (r *Runtime) TLSCreate(size int) error { return r.store.Create(size) }

// TLSDestroy releases the calling thread's region.
func (r *Runtime) TLSDestroy() error { return r.store.Destroy() }

// TLSRead copies length bytes at offset of the caller's region into buf.
func (r *Runtime) TLSRead(offset, length int, buf []byte) error {
	return r.store.Read(offset, length, buf)
}

// TLSWrite copies length bytes of buf into the caller's region at offset.
func (r *Runtime) TLSWrite(offset, length int, buf []byte) error {
	return r.store.Write(offset, length, buf)
}

// TLSClone gives the calling thread a copy-on-write view of src's region.
func (r *Runtime) TLSClone(src api.ThreadID) error { return r.store.Clone(src) }

// TLSStat describes the region owned by id.
func (r *Runtime) TLSStat(id api.ThreadID) (api.RegionInfo, error) { return r.store.Stat(id) }

// TLSPageAddr returns the address of a region page, for diagnostics.
func (r *Runtime) TLSPageAddr(id api.ThreadID, index int) (uintptr, error) {
	return r.store.PageAddr(id, index)
}

// GetControl returns the Control interface for config and metrics.
func (r *Runtime) GetControl() api.Control { return r.control }

// GetDebugAPI returns the probe registry.
func (r *Runtime) GetDebugAPI() api.Debug { return r.control }

// Shutdown disarms preemption. Threads keep their state and may still be
// scheduled voluntarily. Calling Shutdown twice is a no-op.
func (r *Runtime) Shutdown() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	if err := r.sched.Close(); err != nil {
		log.Printf("[facade] scheduler close: %v", err)
		return err
	}
	return nil
}
