// File: pool/doc.go
// Author: Blackbluue
// License: Apache-2.0

// Package pool implements a fixed-size worker pool fed by a concurrent
// FIFO task queue.
//
// A pool owns N workers, created eagerly and never resized, all
// consuming a single cqueue.Queue of tasks. Producers submit work with
// AddWork or TimedAddWork; the backpressure policy (reject, block, or
// block with timeout) is fixed at creation through an Attr object.
// Wait blocks until the queue has drained and no worker is mid-task,
// detected through a reader/writer lock whose read side each worker
// holds exactly while a task body runs. Destroy shuts the pool down
// gracefully (drain first) or forcefully (abandon queued work).
//
// Tasks are plain closures receiving a context. Under the deferred
// cancellation type the context is never canceled mid-body; under the
// asynchronous type a forceful shutdown cancels it, and cooperative
// tasks are expected to notice. The pool never observes task outcomes;
// a task reports results through whatever state it captured.
package pool
