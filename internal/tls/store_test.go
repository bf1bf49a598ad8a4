package tls

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/control"
	"github.com/momentics/hioload-green/internal/concurrency"
	"github.com/momentics/hioload-green/pool"
)

type exits struct {
	mu     sync.Mutex
	values map[api.ThreadID]any
}

func (e *exits) record(id api.ThreadID, v any) {
	e.mu.Lock()
	e.values[id] = v
	e.mu.Unlock()
}

func (e *exits) get(id api.ThreadID) (any, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.values[id]
	return v, ok
}

func newTestStore(t *testing.T) (*Store, *concurrency.Scheduler, *exits, api.PageAllocator) {
	t.Helper()
	ex := &exits{values: make(map[api.ThreadID]any)}
	cfg := control.DefaultConfig()
	cfg.PreemptInterval = 0
	cfg.OnExit = ex.record
	cfg.Terminate = func(code int) { t.Errorf("terminate(%d)", code) }
	s, err := concurrency.NewScheduler(cfg, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	pages := pool.NewPageAllocator()
	return NewStore(s, pages, nil), s, ex, pages
}

func waitFor(t *testing.T, s *concurrency.Scheduler, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not reached")
		}
		s.Yield()
	}
}

func TestStore_RoundTrip(t *testing.T) {
	st, _, _, pages := newTestStore(t)

	if err := st.Create(100); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := st.Write(0, 4, []byte("abcd")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 4)
	if err := st.Read(0, 4, buf); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if string(buf) != "abcd" {
		t.Fatalf("read %q, want abcd", buf)
	}

	info, err := st.Stat(api.MainThreadID)
	if err != nil || info.Size != 100 || info.Pages != 1 {
		t.Fatalf("Stat: %+v %v", info, err)
	}
	if err := st.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if n := pool.MappedPages(pages); n != 0 {
		t.Fatalf("pages still mapped: %d", n)
	}
}

func TestStore_SpansPages(t *testing.T) {
	st, _, _, _ := newTestStore(t)
	ps := st.PageSize()
	size := 2*ps + 10

	if err := st.Create(size); err != nil {
		t.Fatal(err)
	}
	if info, _ := st.Stat(api.MainThreadID); info.Pages != 3 {
		t.Fatalf("pages %d, want 3", info.Pages)
	}
	data := bytes.Repeat([]byte("0123456789"), (ps+20)/10)
	off := ps - 10
	if err := st.Write(off, len(data), data); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, len(data))
	if err := st.Read(off, len(data), got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("cross-page round trip mismatch")
	}
}

func TestStore_Errors(t *testing.T) {
	st, _, _, _ := newTestStore(t)
	buf := make([]byte, 8)

	if err := st.Read(0, 1, buf); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("Read without region: %v", err)
	}
	if err := st.Destroy(); !errors.Is(err, api.ErrNotFound) {
		t.Fatalf("Destroy without region: %v", err)
	}
	if err := st.Create(0); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Create(0): %v", err)
	}
	if err := st.Create(16); err != nil {
		t.Fatal(err)
	}
	if err := st.Create(16); !errors.Is(err, api.ErrAlreadyExists) {
		t.Fatalf("second Create: %v", err)
	}
	if err := st.Clone(42); !errors.Is(err, api.ErrAlreadyExists) {
		t.Fatalf("Clone into owned: %v", err)
	}
	if err := st.Write(0, 8, []byte("original")); err != nil {
		t.Fatal(err)
	}

	for _, tc := range []struct {
		name        string
		off, length int
		buf         []byte
	}{
		{"past end", 12, 8, buf},
		{"negative offset", -1, 2, buf},
		{"negative length", 0, -1, buf},
		{"short buffer", 0, 8, buf[:4]},
	} {
		if err := st.Read(tc.off, tc.length, tc.buf); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("Read %s: %v", tc.name, err)
		}
		if err := st.Write(tc.off, tc.length, []byte("XXXXXXXX")[:len(tc.buf)]); !errors.Is(err, api.ErrInvalidArgument) {
			t.Errorf("Write %s: %v", tc.name, err)
		}
	}

	if err := st.Read(0, 8, buf); err != nil || string(buf) != "original" {
		t.Fatalf("contents after rejected ops: %q %v", buf, err)
	}
}

func TestStore_CopyOnWriteIsolation(t *testing.T) {
	st, s, _, _ := newTestStore(t)

	var a api.ThreadID
	step := 0
	var readBack []byte
	var errs []error
	fail := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	a, err := s.Create(func(any) {
		fail(st.Create(1))
		fail(st.Write(0, 1, []byte("X")))
		step = 1
		for step < 2 {
			s.Yield()
		}
		buf := make([]byte, 1)
		fail(st.Read(0, 1, buf))
		readBack = buf
		step = 3
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Create(func(any) {
		for step < 1 {
			s.Yield()
		}
		fail(st.Clone(a))
		if info, _ := st.Stat(s.Self()); info.SharedPages != 1 {
			t.Errorf("clone shares %d pages, want 1", info.SharedPages)
		}
		fail(st.Write(0, 1, []byte("Y")))
		buf := make([]byte, 1)
		fail(st.Read(0, 1, buf))
		if string(buf) != "Y" {
			t.Errorf("clone reads %q, want Y", buf)
		}
		step = 2
	}, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return step == 3 })

	if len(errs) != 0 {
		t.Fatalf("errors: %v", errs)
	}
	if string(readBack) != "X" {
		t.Fatalf("owner reads %q after clone write, want X", readBack)
	}
	if info, _ := st.Stat(a); info.SharedPages != 0 {
		t.Fatalf("source still shares %d pages", info.SharedPages)
	}
	if n := st.counters.PagesCopied.Load(); n != 1 {
		t.Fatalf("pages copied %d, want 1", n)
	}
}

func TestStore_DestroyKeepsSharedPages(t *testing.T) {
	st, s, _, pages := newTestStore(t)

	if err := st.Create(10); err != nil {
		t.Fatal(err)
	}
	if err := st.Write(0, 5, []byte("hello")); err != nil {
		t.Fatal(err)
	}
	done := false
	var got string
	if _, err := s.Create(func(any) {
		if err := st.Clone(api.MainThreadID); err != nil {
			t.Errorf("Clone: %v", err)
		}
		done = true
		for st.Regions() == 2 {
			s.Yield()
		}
		buf := make([]byte, 5)
		if err := st.Read(0, 5, buf); err != nil {
			t.Errorf("Read: %v", err)
		}
		got = string(buf)
		st.Destroy()
	}, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return done })
	if err := st.Destroy(); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return st.Regions() == 0 })

	if got != "hello" {
		t.Fatalf("clone read %q after source destroy", got)
	}
	if n := pool.MappedPages(pages); n != 0 {
		t.Fatalf("pages still mapped: %d", n)
	}
}

func TestStore_CopyOnWritePrivatizesOnlyTouchedPage(t *testing.T) {
	st, s, _, _ := newTestStore(t)
	ps := st.PageSize()

	if err := st.Create(3 * ps); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if err := st.Write(i*ps, 1, []byte{byte('a' + i)}); err != nil {
			t.Fatal(err)
		}
	}

	var info api.RegionInfo
	got := make([]byte, 3)
	done := false
	if _, err := s.Create(func(any) {
		defer func() { done = true }()
		if err := st.Clone(api.MainThreadID); err != nil {
			t.Errorf("Clone: %v", err)
			return
		}
		if err := st.Write(ps, 1, []byte("B")); err != nil {
			t.Errorf("Write: %v", err)
		}
		for i := range got {
			st.Read(i*ps, 1, got[i:i+1])
		}
		info, _ = st.Stat(s.Self())
	}, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return done })

	if n := st.counters.PagesCopied.Load(); n != 1 {
		t.Errorf("pages copied %d, want 1", n)
	}
	if info.Pages != 3 || info.SharedPages != 2 {
		t.Errorf("clone info %+v, want 3 pages with 2 shared", info)
	}
	if string(got) != "aBc" {
		t.Errorf("clone reads %q, want aBc", got)
	}
	own := make([]byte, 1)
	if err := st.Read(ps, 1, own); err != nil || string(own) != "b" {
		t.Errorf("source page 1 reads %q %v, want b", own, err)
	}
}

// flakyPages fails to open and to release the first page allocated after
// arm is set.
type flakyPages struct {
	api.PageAllocator
	arm    bool
	target []byte
}

func (f *flakyPages) Alloc() ([]byte, error) {
	mem, err := f.PageAllocator.Alloc()
	if err == nil && f.arm && f.target == nil {
		f.target = mem
	}
	return mem, err
}

func (f *flakyPages) isTarget(page []byte) bool {
	return f.target != nil && len(page) > 0 && &page[0] == &f.target[0]
}

func (f *flakyPages) Unprotect(page []byte) error {
	if f.isTarget(page) {
		return errors.New("injected unprotect failure")
	}
	return f.PageAllocator.Unprotect(page)
}

func (f *flakyPages) Free(page []byte) error {
	if f.isTarget(page) {
		f.PageAllocator.Free(page)
		return errors.New("injected free failure")
	}
	return f.PageAllocator.Free(page)
}

func TestStore_FailedPrivatizationLeavesSharing(t *testing.T) {
	_, s, _, _ := newTestStore(t)
	pages := &flakyPages{PageAllocator: pool.NewPageAllocator()}
	st := NewStore(s, pages, nil)

	if err := st.Create(10); err != nil {
		t.Fatal(err)
	}
	if err := st.Write(0, 5, []byte("hello")); err != nil {
		t.Fatal(err)
	}

	var werr error
	var info api.RegionInfo
	buf := make([]byte, 5)
	done := false
	if _, err := s.Create(func(any) {
		defer func() { done = true }()
		if err := st.Clone(api.MainThreadID); err != nil {
			t.Errorf("Clone: %v", err)
			return
		}
		pages.arm = true
		werr = st.Write(0, 5, []byte("world"))
		st.Read(0, 5, buf)
		info, _ = st.Stat(s.Self())
	}, nil); err != nil {
		t.Fatal(err)
	}
	waitFor(t, s, func() bool { return done })

	if werr == nil {
		t.Fatal("Write succeeded despite failed copy page")
	}
	if string(buf) != "hello" || info.SharedPages != 1 {
		t.Fatalf("clone after failed write: %q, %+v", buf, info)
	}
	if n := st.counters.PagesCopied.Load(); n != 0 {
		t.Errorf("pages copied %d, want 0", n)
	}
	// The failed release is logged, not counted.
	if n := st.counters.PagesReleased.Load(); n != 0 {
		t.Errorf("pages released %d, want 0", n)
	}
}
