// File: cqueue/guard.go
// Author: Blackbluue
// License: Apache-2.0
//
// Guard objects represent ownership of the manual lock. Releasing the
// guard flushes the deferred signal batch.

package cqueue

import "github.com/petermattis/goid"

// Guard is the handle for a held manual lock, returned by Lock and the
// WaitFor* family. It must be released by the goroutine that acquired
// it; guards must not be handed to other goroutines.
type Guard[T any] struct {
	queue    *Queue[T]
	released bool
}

// Unlock releases the manual lock, broadcasts every condition
// transition that was deferred while it was held, and unblocks
// goroutines waiting for the mutex. Returns ErrNotOwner when the guard
// was already released, the queue has since been destroyed, or the
// calling goroutine is not the one that acquired the lock.
func (g *Guard[T]) Unlock() error {
	q := g.queue
	if g.released || q.owner.Load() != goid.Get() {
		return ErrNotOwner
	}
	g.released = true
	q.owner.Store(0)
	q.flushSignals()
	if q.waitingForLock.Load() == 0 {
		q.lockFree.Signal()
	}
	q.mu.Unlock()
	return nil
}
