//go:build unix

// File: pool/pages_unix.go
// Author: momentics <momentics@gmail.com>
//
// Anonymous-mmap page allocator with mprotect-based access control.

package pool

import (
	"fmt"
	"sync/atomic"

	"golang.org/x/sys/unix"

	"github.com/momentics/hioload-green/api"
)

// mmapPages allocates every page as its own private anonymous mapping so
// that protection can be changed page by page.
type mmapPages struct {
	size   int
	mapped atomic.Int64
}

func newPageAllocator() api.PageAllocator {
	return &mmapPages{size: unix.Getpagesize()}
}

func (m *mmapPages) PageSize() int { return m.size }

// Alloc maps one page with PROT_NONE.
func (m *mmapPages) Alloc() ([]byte, error) {
	b, err := unix.Mmap(-1, 0, m.size, unix.PROT_NONE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, fmt.Errorf("pool: mmap page: %w", err)
	}
	m.mapped.Add(1)
	return b, nil
}

func (m *mmapPages) Free(page []byte) error {
	if len(page) != m.size {
		return api.NewError(api.ErrCodeInvalidArgument, "pool: foreign page").
			WithContext("len", len(page))
	}
	if err := unix.Munmap(page); err != nil {
		return fmt.Errorf("pool: munmap page: %w", err)
	}
	m.mapped.Add(-1)
	return nil
}

func (m *mmapPages) Protect(page []byte) error {
	if err := unix.Mprotect(page, unix.PROT_NONE); err != nil {
		return fmt.Errorf("pool: protect page: %w", err)
	}
	return nil
}

func (m *mmapPages) Unprotect(page []byte) error {
	if err := unix.Mprotect(page, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return fmt.Errorf("pool: unprotect page: %w", err)
	}
	return nil
}

// Mapped reports the number of pages currently mapped.
func (m *mmapPages) Mapped() int64 { return m.mapped.Load() }

// Protected reports whether the platform enforces page protection.
func Protected() bool { return true }
