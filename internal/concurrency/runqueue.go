// File: internal/concurrency/runqueue.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Circular run queue of thread control blocks in creation order.

package concurrency

// runQueue is a circular singly linked list. Whenever it is non-empty,
// tail.next == head; a lone element links to itself.
type runQueue struct {
	head *Thread
	tail *Thread
	n    int
}

// push appends t at the tail.
func (q *runQueue) push(t *Thread) {
	if q.head == nil {
		q.head, q.tail = t, t
		t.next = t
	} else {
		q.tail.next = t
		t.next = q.head
		q.tail = t
	}
	q.n++
}

// unlink removes t, whose predecessor is prev.
func (q *runQueue) unlink(prev, t *Thread) {
	if q.n == 1 {
		q.head, q.tail = nil, nil
		t.next = nil
		q.n = 0
		return
	}
	prev.next = t.next
	if q.head == t {
		q.head = t.next
	}
	if q.tail == t {
		q.tail = prev
	}
	t.next = nil
	q.n--
}

// Len returns the number of queued threads.
func (q *runQueue) Len() int { return q.n }

// each visits threads from head in queue order.
func (q *runQueue) each(fn func(*Thread)) {
	t := q.head
	for i := 0; i < q.n; i++ {
		fn(t)
		t = t.next
	}
}
