// File: internal/concurrency/doc.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Green-thread runtime core for hioload-green: execution contexts, the
// circular run queue, the preemptive round-robin scheduler, and the blocking
// mutex and barrier built on its block/wake primitive.
//
// Every logical thread is backed by a goroutine, but only the goroutine that
// holds the scheduler baton executes. Handing the baton over is the context
// switch, so the runtime behaves as a single execution stream: interleaving,
// never simultaneity.
//
// Preemption is delivered at safepoints. A ticker marks a preemption as
// pending; the running thread honours it the next time it leaves a runtime
// critical section or calls Safepoint. Code that never enters the runtime is
// never preempted.
package concurrency
