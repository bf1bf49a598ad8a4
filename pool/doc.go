// Package pool
// Author: momentics <momentics@gmail.com>
//
// Memory layer for hioload-green.
// Provides page-granular, protection-aware allocations for thread-local storage
// and the stack regions owned by logical threads.
// On unix targets pages come straight from anonymous mmap and are toggled with
// mprotect; elsewhere they are heap slices and protection is a no-op, leaving
// only bounds-checked access through the storage API.
package pool
