// File: api/pool.go
// Author: momentics <momentics@gmail.com>
//
// Defines abstract memory APIs: page and stack allocators.

package api

// PageAllocator hands out page-aligned, page-sized memory whose access
// protection can be toggled. Freshly allocated pages are inaccessible.
type PageAllocator interface {
	// PageSize returns the allocation granularity in bytes.
	PageSize() int

	// Alloc returns one inaccessible page.
	Alloc() ([]byte, error)

	// Free releases a page obtained from Alloc.
	Free(page []byte) error

	// Protect makes the page inaccessible.
	Protect(page []byte) error

	// Unprotect makes the page readable and writable.
	Unprotect(page []byte) error
}

// StackAllocator manages the memory regions owned by logical threads.
type StackAllocator interface {
	Alloc(size int) (Stack, error)
	Free(s Stack) error
	Stats() StackStats
}

// Stack is an exclusively owned stack region.
type Stack interface {
	Bytes() []byte
	Size() int
}

// StackStats exposes stack accounting.
type StackStats struct {
	TotalAlloc int64
	TotalFree  int64
	InUse      int64
}
