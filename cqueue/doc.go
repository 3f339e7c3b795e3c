// File: cqueue/doc.go
// Author: Blackbluue
// License: Apache-2.0

// Package cqueue implements a thread-safe bounded FIFO queue with rich
// wait/signal semantics.
//
// The queue wraps a plain fifo.Queue with one mutex and four condition
// variables (is-empty, is-full, not-empty, not-full). Beyond the usual
// enqueue/dequeue surface it offers:
//
//   - WaitFor* operations that block until a queue condition holds and
//     return a Guard: the queue stays locked for the calling goroutine
//     until the guard is released, so the condition can be acted on
//     atomically.
//   - An explicit Lock/Unlock protocol (the "manual lock") that lets a
//     caller batch several operations into one critical section. While
//     the manual lock is held, condition broadcasts are deferred and
//     flushed in one batch when the guard is released, so sleeping
//     goroutines are not woken while they still cannot acquire the
//     mutex.
//   - CancelWait, a soft wake-all that unblocks every waiter without
//     consuming queue state; the queue remains fully usable.
//   - Destroy, a hard teardown that wakes all waiters and refuses any
//     operation that arrives afterwards.
//
// All operations are serialized by the internal mutex; the wrapper adds
// no reordering on top of the backing store's strict FIFO order.
package cqueue
