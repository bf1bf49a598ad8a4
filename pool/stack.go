// File: pool/stack.go
// Package pool implements stack region allocation for logical threads.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"sync"
	"sync/atomic"

	"github.com/momentics/hioload-green/api"
)

// stackRegion is one exclusively owned stack. freed guards against a
// second release of the same region.
type stackRegion struct {
	mem   []byte
	freed atomic.Bool
}

func (s *stackRegion) Bytes() []byte { return s.mem }
func (s *stackRegion) Size() int     { return len(s.mem) }

// StackPool recycles fixed-size stack regions through a bounded free list.
// Regions of other sizes are allocated and dropped directly.
type StackPool struct {
	size     int
	capacity int

	mu   sync.Mutex
	free [][]byte

	totalAlloc atomic.Int64
	totalFree  atomic.Int64
}

var _ api.StackAllocator = (*StackPool)(nil)

const defaultStackCapacity = 64

// NewStackPool creates a pool for regions of size bytes keeping at most
// capacity released regions for reuse. capacity <= 0 selects a default.
func NewStackPool(size, capacity int) *StackPool {
	if capacity <= 0 {
		capacity = defaultStackCapacity
	}
	return &StackPool{size: size, capacity: capacity}
}

// Alloc returns a zeroed region of size bytes.
func (p *StackPool) Alloc(size int) (api.Stack, error) {
	if size <= 0 {
		return nil, api.NewError(api.ErrCodeInvalidArgument, "pool: stack size must be positive").
			WithContext("size", size)
	}
	var mem []byte
	if size == p.size {
		p.mu.Lock()
		if n := len(p.free); n > 0 {
			mem = p.free[n-1]
			p.free = p.free[:n-1]
		}
		p.mu.Unlock()
	}
	if mem == nil {
		mem = make([]byte, size)
	} else {
		clear(mem)
	}
	p.totalAlloc.Add(1)
	return &stackRegion{mem: mem}, nil
}

// Free releases a region. Releasing the same region twice is an error and
// leaves the accounting untouched.
func (p *StackPool) Free(s api.Stack) error {
	r, ok := s.(*stackRegion)
	if !ok || r == nil {
		return api.NewError(api.ErrCodeInvalidArgument, "pool: foreign stack")
	}
	if !r.freed.CompareAndSwap(false, true) {
		return api.NewError(api.ErrCodeInvalidArgument, "pool: stack freed twice")
	}
	mem := r.mem
	r.mem = nil
	if len(mem) == p.size {
		p.mu.Lock()
		if len(p.free) < p.capacity {
			p.free = append(p.free, mem)
		}
		p.mu.Unlock()
	}
	p.totalFree.Add(1)
	return nil
}

// Stats returns allocation accounting.
func (p *StackPool) Stats() api.StackStats {
	alloc := p.totalAlloc.Load()
	free := p.totalFree.Load()
	return api.StackStats{
		TotalAlloc: alloc,
		TotalFree:  free,
		InUse:      alloc - free,
	}
}
