// File: internal/tls/fault.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Fault ownership test for protected region pages.

package tls

import (
	"github.com/momentics/hioload-green/api"
	"github.com/momentics/hioload-green/internal/concurrency"
	"github.com/momentics/hioload-green/pool"
)

var _ concurrency.FaultHandler = (*Store)(nil)

func poolPages() api.PageAllocator { return pool.DefaultPages() }

// Owns reports whether addr falls in a page of any live region. It is
// called on the fault path of the faulting thread.
func (st *Store) Owns(addr uintptr) bool {
	aligned := addr &^ uintptr(st.pageSize-1)
	st.mu.RLock()
	defer st.mu.RUnlock()
	for _, r := range st.regions {
		for _, p := range r.pages {
			if p.base() == aligned {
				return true
			}
		}
	}
	return false
}
