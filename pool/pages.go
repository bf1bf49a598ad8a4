// File: pool/pages.go
// Author: momentics <momentics@gmail.com>
//
// Platform-neutral entry points for the page allocator.

package pool

import (
	"sync"

	"github.com/momentics/hioload-green/api"
)

var (
	defaultOnce  sync.Once
	defaultPages api.PageAllocator
)

// NewPageAllocator returns a fresh allocator for the current platform.
func NewPageAllocator() api.PageAllocator {
	return newPageAllocator()
}

// DefaultPages returns a process-wide page allocator so every runtime in the
// process draws from the same accounting.
func DefaultPages() api.PageAllocator {
	defaultOnce.Do(func() {
		defaultPages = newPageAllocator()
	})
	return defaultPages
}

// MappedPages reports live pages for allocators created by this package,
// or -1 for foreign implementations.
func MappedPages(a api.PageAllocator) int64 {
	if m, ok := a.(interface{ Mapped() int64 }); ok {
		return m.Mapped()
	}
	return -1
}
