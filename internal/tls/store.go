// File: internal/tls/store.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Region registry and the read/write/clone operations.

package tls

import (
	"fmt"
	"log"
	"sync"

	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/control"
	"github.com/momentics/hioload-green/internal/concurrency"
)

// Host is the scheduler side of the store: the critical section that masks
// preemption, the identity of the running thread and the fault hook.
type Host interface {
	EnterCritical()
	LeaveCritical()
	SelfLocked() api.ThreadID
	SetFaultHandler(h concurrency.FaultHandler)
}

// Store owns every region of one runtime. Operations address the region of
// the calling thread.
type Store struct {
	host     Host
	pages    api.PageAllocator
	counters *control.Counters
	pageSize int

	// mu guards regions for readers outside the critical section: the fault
	// path and diagnostics.
	mu      sync.RWMutex
	regions map[api.ThreadID]*Region

	install sync.Once
}

var _ api.LocalStorage = (*Store)(nil)

// NewStore creates an empty store. A nil pages selects the platform
// allocator, a nil counters private counters.
func NewStore(host Host, pages api.PageAllocator, counters *control.Counters) *Store {
	if pages == nil {
		pages = poolPages()
	}
	if counters == nil {
		counters = &control.Counters{}
	}
	return &Store{
		host:     host,
		pages:    pages,
		counters: counters,
		pageSize: pages.PageSize(),
		regions:  make(map[api.ThreadID]*Region),
	}
}

// Create gives the calling thread a region of size bytes.
func (st *Store) Create(size int) error {
	if size <= 0 {
		return api.NewError(api.ErrCodeInvalidArgument, "tls: size must be positive").WithContext("size", size)
	}
	st.host.EnterCritical()
	defer st.host.LeaveCritical()

	self := st.host.SelfLocked()
	if st.lookup(self) != nil {
		return api.NewError(api.ErrCodeAlreadyExists, "tls: thread already owns a region").WithContext("thread", self)
	}
	st.install.Do(func() { st.host.SetFaultHandler(st) })

	n := (size + st.pageSize - 1) / st.pageSize
	r := &Region{owner: self, size: size, pages: make([]*page, 0, n)}
	for i := 0; i < n; i++ {
		mem, err := st.pages.Alloc()
		if err != nil {
			st.release(r)
			return fmt.Errorf("tls: allocate page %d of %d: %w", i+1, n, err)
		}
		st.counters.PagesAllocated.Add(1)
		r.pages = append(r.pages, &page{mem: mem, refs: 1})
	}

	st.mu.Lock()
	st.regions[self] = r
	st.mu.Unlock()
	return nil
}

// Destroy drops the region of the calling thread. Pages still shared with
// another region stay alive for it.
func (st *Store) Destroy() error {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()

	self := st.host.SelfLocked()
	r := st.lookup(self)
	if r == nil {
		return errNoRegion(self)
	}
	st.mu.Lock()
	delete(st.regions, self)
	st.mu.Unlock()
	st.release(r)
	return nil
}

func (st *Store) release(r *Region) {
	for _, p := range r.pages {
		if p.refs > 1 {
			p.refs--
			continue
		}
		if err := st.pages.Free(p.mem); err != nil {
			log.Printf("[tls] thread %d: release page: %v", r.owner, err)
			continue
		}
		st.counters.PagesReleased.Add(1)
	}
	r.pages = nil
}

// Read copies length bytes at offset of the caller's region into buf.
func (st *Store) Read(offset, length int, buf []byte) error {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()

	r, err := st.checked(offset, length, buf)
	if err != nil {
		return err
	}
	return st.access(r, func() error {
		st.each(r, offset, length, func(p *page, off, n, done int) {
			copy(buf[done:done+n], p.mem[off:off+n])
		})
		return nil
	})
}

// Write copies length bytes of buf into the caller's region at offset.
// Shared pages in the target range are privatized first.
func (st *Store) Write(offset, length int, buf []byte) error {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()

	r, err := st.checked(offset, length, buf)
	if err != nil {
		return err
	}
	return st.access(r, func() error {
		first, last := r.span(offset, length, st.pageSize)
		for i := first; i <= last; i++ {
			if err := st.privatize(r, i); err != nil {
				return err
			}
		}
		st.each(r, offset, length, func(p *page, off, n, done int) {
			copy(p.mem[off:off+n], buf[done:done+n])
		})
		return nil
	})
}

// Clone gives the calling thread a region sharing every page of src.
func (st *Store) Clone(src api.ThreadID) error {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()

	self := st.host.SelfLocked()
	if st.lookup(self) != nil {
		return api.NewError(api.ErrCodeAlreadyExists, "tls: thread already owns a region").WithContext("thread", self)
	}
	from := st.lookup(src)
	if from == nil {
		return errNoRegion(src)
	}
	r := &Region{owner: self, size: from.size, pages: make([]*page, len(from.pages))}
	for i, p := range from.pages {
		p.refs++
		r.pages[i] = p
	}
	st.mu.Lock()
	st.regions[self] = r
	st.mu.Unlock()
	return nil
}

// Stat describes the region owned by id.
func (st *Store) Stat(id api.ThreadID) (api.RegionInfo, error) {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()
	r := st.lookup(id)
	if r == nil {
		return api.RegionInfo{}, errNoRegion(id)
	}
	return r.info(), nil
}

// PageAddr returns the address of page index of the region owned by id.
func (st *Store) PageAddr(id api.ThreadID, index int) (uintptr, error) {
	st.host.EnterCritical()
	defer st.host.LeaveCritical()
	r := st.lookup(id)
	if r == nil {
		return 0, errNoRegion(id)
	}
	if index < 0 || index >= len(r.pages) {
		return 0, api.NewError(api.ErrCodeInvalidArgument, "tls: page index out of range").
			WithContext("index", index).WithContext("pages", len(r.pages))
	}
	return r.pages[index].base(), nil
}

// Regions returns the number of live regions.
func (st *Store) Regions() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.regions)
}

// PageSize returns the page granularity of regions.
func (st *Store) PageSize() int { return st.pageSize }

func (st *Store) lookup(id api.ThreadID) *Region {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.regions[id]
}

// checked resolves the caller's region and validates the transfer range.
func (st *Store) checked(offset, length int, buf []byte) (*Region, error) {
	self := st.host.SelfLocked()
	r := st.lookup(self)
	if r == nil {
		return nil, errNoRegion(self)
	}
	if offset < 0 || length < 0 || offset > r.size-length {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tls: range outside region").
			WithContext("offset", offset).WithContext("length", length).WithContext("size", r.size)
	}
	if len(buf) < length {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "tls: buffer shorter than length").
			WithContext("buffer", len(buf)).WithContext("length", length)
	}
	return r, nil
}

// access opens every page of r for the duration of fn. Pages are closed
// again when fn fails and when it faults: a fault unwinds through here on
// its way to ending the thread.
func (st *Store) access(r *Region, fn func() error) (err error) {
	for i, p := range r.pages {
		if uerr := st.pages.Unprotect(p.mem); uerr != nil {
			st.protect(r.pages[:i])
			return fmt.Errorf("tls: open page %d: %w", i, uerr)
		}
	}
	defer func() {
		if perr := st.protect(r.pages); err == nil {
			err = perr
		}
	}()
	return fn()
}

func (st *Store) protect(pages []*page) error {
	var first error
	for i, p := range pages {
		if err := st.pages.Protect(p.mem); err != nil {
			log.Printf("[tls] close page %d: %v", i, err)
			if first == nil {
				first = fmt.Errorf("tls: close page %d: %w", i, err)
			}
		}
	}
	return first
}

// privatize replaces a shared page i of r by an exclusive copy. The
// original page is closed again for the remaining sharers.
func (st *Store) privatize(r *Region, i int) error {
	old := r.pages[i]
	if old.refs <= 1 {
		return nil
	}
	mem, err := st.pages.Alloc()
	if err != nil {
		return fmt.Errorf("tls: copy-on-write page %d: %w", i, err)
	}
	st.counters.PagesAllocated.Add(1)
	if err := st.pages.Unprotect(mem); err != nil {
		if ferr := st.pages.Free(mem); ferr != nil {
			log.Printf("[tls] thread %d: release copy page: %v", r.owner, ferr)
		} else {
			st.counters.PagesReleased.Add(1)
		}
		return fmt.Errorf("tls: copy-on-write page %d: %w", i, err)
	}
	copy(mem, old.mem)
	old.refs--
	r.pages[i] = &page{mem: mem, refs: 1}
	st.counters.PagesCopied.Add(1)
	return st.pages.Protect(old.mem)
}

// each visits the page slices covering [offset, offset+length). done is the
// number of bytes already visited.
func (st *Store) each(r *Region, offset, length int, fn func(p *page, off, n, done int)) {
	done := 0
	for done < length {
		pos := offset + done
		p := r.pages[pos/st.pageSize]
		off := pos % st.pageSize
		n := min(st.pageSize-off, length-done)
		fn(p, off, n, done)
		done += n
	}
}

func errNoRegion(id api.ThreadID) error {
	return api.NewError(api.ErrCodeNotFound, "tls: thread owns no region").WithContext("thread", id)
}
