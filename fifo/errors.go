// File: fifo/errors.go
// Author: Blackbluue
// License: Apache-2.0
//
// Error definitions for the fifo package.

package fifo

import "errors"

var (
	// ErrFull indicates an enqueue on a bounded queue at capacity.
	ErrFull = errors.New("fifo: queue is full")

	// ErrEmpty indicates a dequeue or peek on an empty queue.
	ErrEmpty = errors.New("fifo: queue is empty")
)
