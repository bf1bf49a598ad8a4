//go:build !unix

// File: pool/pages_other.go
// Author: momentics <momentics@gmail.com>
//
// Heap-backed page allocator for targets without user-level mprotect.
// Protection calls are accepted and ignored.

package pool

import (
	"sync/atomic"

	"github.com/momentics/hioload-green/api"
)

const fallbackPageSize = 4096

type heapPages struct {
	mapped atomic.Int64
}

func newPageAllocator() api.PageAllocator {
	return &heapPages{}
}

func (h *heapPages) PageSize() int { return fallbackPageSize }

func (h *heapPages) Alloc() ([]byte, error) {
	h.mapped.Add(1)
	return make([]byte, fallbackPageSize), nil
}

func (h *heapPages) Free(page []byte) error {
	if len(page) != fallbackPageSize {
		return api.NewError(api.ErrCodeInvalidArgument, "pool: foreign page").
			WithContext("len", len(page))
	}
	h.mapped.Add(-1)
	return nil
}

func (h *heapPages) Protect([]byte) error   { return nil }
func (h *heapPages) Unprotect([]byte) error { return nil }

func (h *heapPages) Mapped() int64 { return h.mapped.Load() }

// Protected reports whether the platform enforces page protection.
func Protected() bool { return false }
