// File: pool/errors.go
// Author: Blackbluue
// License: Apache-2.0
//
// Error definitions for the pool package.

package pool

import "errors"

var (
	// ErrInvalid indicates a nil task, an out-of-range attribute value,
	// or an unrecognized shutdown flag.
	ErrInvalid = errors.New("pool: invalid argument")

	// ErrFull indicates the task queue was full and the pool's policy
	// is to reject rather than block. The task was not submitted.
	ErrFull = errors.New("pool: task queue is full")

	// ErrTimedOut indicates a blocking submission or wait expired.
	ErrTimedOut = errors.New("pool: timed out")

	// ErrWaitCanceled indicates a Wait was unblocked by CancelWait
	// before the pool went idle.
	ErrWaitCanceled = errors.New("pool: wait canceled")

	// ErrDestroyed indicates the pool has been destroyed.
	ErrDestroyed = errors.New("pool: pool is destroyed")
)
