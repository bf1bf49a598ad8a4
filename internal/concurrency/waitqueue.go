// File: internal/concurrency/waitqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// FIFO list of blocked threads.

package concurrency

import "github.com/eapache/queue"

// waitQueue keeps blocked threads in arrival order.
type waitQueue struct {
	q *queue.Queue
}

func newWaitQueue() *waitQueue {
	return &waitQueue{q: queue.New()}
}

func (w *waitQueue) push(t *Thread) {
	w.q.Add(t)
}

// pop removes the oldest waiter, or returns nil when empty.
func (w *waitQueue) pop() *Thread {
	if w.q.Length() == 0 {
		return nil
	}
	return w.q.Remove().(*Thread)
}

func (w *waitQueue) Len() int { return w.q.Length() }
