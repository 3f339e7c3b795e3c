// File: cqueue/errors.go
// Author: Blackbluue
// License: Apache-2.0
//
// Error definitions for the cqueue package.

package cqueue

import "errors"

var (
	// ErrInvalid indicates an out-of-range argument.
	ErrInvalid = errors.New("cqueue: invalid argument")

	// ErrFull indicates an enqueue on a queue at capacity.
	ErrFull = errors.New("cqueue: queue is full")

	// ErrEmpty indicates a dequeue or peek on an empty queue.
	ErrEmpty = errors.New("cqueue: queue is empty")

	// ErrDeadlock indicates a goroutine tried to lock or wait on a
	// queue whose manual lock it already holds.
	ErrDeadlock = errors.New("cqueue: manual lock already held by caller")

	// ErrNotOwner indicates an unlock by a goroutine that does not own
	// the manual lock.
	ErrNotOwner = errors.New("cqueue: caller does not own the manual lock")

	// ErrWaitCanceled indicates a blocked wait was woken by CancelWait.
	// The queue remains usable.
	ErrWaitCanceled = errors.New("cqueue: wait canceled")

	// ErrTimedOut indicates a timed wait expired before its condition
	// held.
	ErrTimedOut = errors.New("cqueue: wait timed out")

	// ErrDestroyed indicates the operation was refused or unblocked
	// because the queue is being torn down.
	ErrDestroyed = errors.New("cqueue: queue is destroyed")

	// ErrUnbounded indicates a full/not-full wait on a queue with no
	// capacity bound, which can never become full.
	ErrUnbounded = errors.New("cqueue: queue has unlimited capacity")
)
