// File: fifo/fifo.go
// Author: Blackbluue
// License: Apache-2.0
//
// Bounded FIFO queue over a growable ring buffer. Ordering is strict:
// items leave in exactly the order they entered.

package fifo

import (
	equeue "github.com/eapache/queue"
)

// Unlimited is the capacity of a queue with no upper bound.
const Unlimited = 0

// Queue is a single-threaded FIFO queue of T with an optional capacity
// and an optional destructor applied to items dropped by Clear.
type Queue[T any] struct {
	ring     *equeue.Queue
	capacity int
	free     func(T)
}

// New creates a queue. A capacity of Unlimited (or any non-positive
// value) leaves the queue unbounded. free, when non-nil, is called on
// each item discarded by Clear; items handed back by Dequeue are the
// caller's responsibility.
func New[T any](capacity int, free func(T)) *Queue[T] {
	if capacity < 0 {
		capacity = Unlimited
	}
	return &Queue[T]{
		ring:     equeue.New(),
		capacity: capacity,
		free:     free,
	}
}

// Size returns the number of items currently queued.
func (q *Queue[T]) Size() int { return q.ring.Length() }

// Capacity returns the configured capacity, Unlimited for unbounded
// queues.
func (q *Queue[T]) Capacity() int { return q.capacity }

// IsEmpty reports whether the queue holds no items.
func (q *Queue[T]) IsEmpty() bool { return q.ring.Length() == 0 }

// IsFull reports whether the queue is at capacity. Unbounded queues are
// never full.
func (q *Queue[T]) IsFull() bool {
	return q.capacity != Unlimited && q.ring.Length() >= q.capacity
}

// Enqueue appends item to the back of the queue. Returns ErrFull when a
// bounded queue is at capacity; the queue is left unchanged.
func (q *Queue[T]) Enqueue(item T) error {
	if q.IsFull() {
		return ErrFull
	}
	q.ring.Add(item)
	return nil
}

// Dequeue removes and returns the front item. Returns ErrEmpty when the
// queue holds nothing.
func (q *Queue[T]) Dequeue() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, ErrEmpty
	}
	return q.ring.Remove().(T), nil
}

// Peek returns the front item without removing it. Returns ErrEmpty
// when the queue holds nothing.
func (q *Queue[T]) Peek() (T, error) {
	if q.IsEmpty() {
		var zero T
		return zero, ErrEmpty
	}
	return q.ring.Peek().(T), nil
}

// Clear removes every item, applying the destructor to each. Capacity
// is retained.
func (q *Queue[T]) Clear() {
	for !q.IsEmpty() {
		item := q.ring.Remove().(T)
		if q.free != nil {
			q.free(item)
		}
	}
}
