package pool_test

import (
	"errors"
	"testing"

	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/pool"
)

func TestStackPoolFreeOnce(t *testing.T) {
	p := pool.NewStackPool(1024, 4)
	s, err := p.Alloc(1024)
	if err != nil {
		t.Fatalf("Alloc() error = %v", err)
	}
	if s.Size() != 1024 {
		t.Fatalf("Size() = %d, want 1024", s.Size())
	}
	if err := p.Free(s); err != nil {
		t.Fatalf("first Free() error = %v", err)
	}
	if err := p.Free(s); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("second Free() error = %v, want ErrInvalidArgument", err)
	}
	st := p.Stats()
	if st.TotalAlloc != 1 || st.TotalFree != 1 || st.InUse != 0 {
		t.Fatalf("Stats() = %+v, want 1/1/0", st)
	}
}

func TestStackPoolReuseIsZeroed(t *testing.T) {
	p := pool.NewStackPool(64, 1)
	s1, _ := p.Alloc(64)
	for i := range s1.Bytes() {
		s1.Bytes()[i] = 0xAA
	}
	if err := p.Free(s1); err != nil {
		t.Fatalf("Free() error = %v", err)
	}
	s2, _ := p.Alloc(64)
	for i, b := range s2.Bytes() {
		if b != 0 {
			t.Fatalf("reused stack byte %d = %#x, want 0", i, b)
		}
	}
}

func TestStackPoolRejectsBadSize(t *testing.T) {
	p := pool.NewStackPool(64, 1)
	if _, err := p.Alloc(0); !errors.Is(err, api.ErrInvalidArgument) {
		t.Fatalf("Alloc(0) error = %v, want ErrInvalidArgument", err)
	}
}
