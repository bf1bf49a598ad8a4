// File: internal/tls/region.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package tls

import (
	"unsafe"

	"github.com/momentics/hioload-green/api"
)

// page is one protected page, possibly shared between regions.
type page struct {
	mem  []byte
	refs int
}

func (p *page) base() uintptr {
	return uintptr(unsafe.Pointer(&p.mem[0]))
}

// Region is the storage of one thread.
type Region struct {
	owner api.ThreadID
	size  int
	pages []*page
}

// span returns the pages touched by [offset, offset+length).
func (r *Region) span(offset, length, pageSize int) (first, last int) {
	if length == 0 {
		return 0, -1
	}
	return offset / pageSize, (offset + length - 1) / pageSize
}

func (r *Region) info() api.RegionInfo {
	shared := 0
	for _, p := range r.pages {
		if p.refs > 1 {
			shared++
		}
	}
	return api.RegionInfo{
		Owner:       r.owner,
		Size:        r.size,
		Pages:       len(r.pages),
		SharedPages: shared,
	}
}
