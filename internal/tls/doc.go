// File: internal/tls/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Package tls implements thread-local storage regions for logical threads.
//
// A region is a run of pages that stay inaccessible except while the owner
// reads or writes them through the Store. Clone shares the source pages;
// the first write to a shared page privatizes it. Direct access to a region
// page faults, and the Store, installed as the scheduler fault handler,
// ends the offending thread.
package tls
