// File: pool/pool.go
// Author: Blackbluue
// License: Apache-2.0
//
// Worker pool core: creation, task submission with backpressure,
// idle-wait through the running rwlock, and two-phase shutdown.

package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Blackbluue/BuildingBlocks-sub000/cqueue"
)

// Task is one unit of work. The context is canceled on forceful
// shutdown when the pool uses CancelAsynchronous; under CancelDeferred
// it is never canceled while the body runs. The pool ignores whatever
// the task does; results and errors travel through state the closure
// captured.
type Task func(ctx context.Context)

// ShutdownFlag selects the Destroy policy.
type ShutdownFlag int

const (
	// ShutdownGraceful drains the queue, waits for running tasks, then
	// stops the workers.
	ShutdownGraceful ShutdownFlag = iota + 1

	// ShutdownForceful stops the workers immediately, abandoning
	// queued work.
	ShutdownForceful
)

// pool run states, monotonic once left running
const (
	stateRunning int32 = iota
	stateGraceful
	stateForceful
)

// how often Destroy re-broadcasts the queue cancellation while joining
// workers, to cover a worker that raced past its shutdown check into a
// fresh wait
const joinNudgeInterval = 5 * time.Millisecond

// Pool is a fixed-size worker pool. Construct with New.
type Pool struct {
	attr  Attr
	queue *cqueue.Queue[Task]

	// running is the idle-detection lock: each worker holds the read
	// side exactly while a task body runs, so acquiring the write side
	// succeeds only when no task is mid-flight.
	running sync.RWMutex

	workers   sync.WaitGroup
	state     atomic.Int32
	destroyed atomic.Bool

	// ctx is canceled on forceful shutdown; it reaches task bodies
	// only under CancelAsynchronous.
	ctx    context.Context
	cancel context.CancelFunc

	submitted atomic.Int64
	completed atomic.Int64
	active    atomic.Int64
}

// New creates a pool from the given attributes and starts every worker
// eagerly. A nil attr uses the defaults. Returns ErrInvalid for an
// attribute object that was not initialized through NewAttr.
func New(attr *Attr) (*Pool, error) {
	if attr == nil {
		attr = NewAttr()
	}
	if !attr.valid() {
		return nil, ErrInvalid
	}
	p := &Pool{
		attr:  *attr,
		queue: cqueue.New[Task](attr.queueSize, nil),
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	for i := 0; i < p.attr.threadCount; i++ {
		p.workers.Add(1)
		go p.worker(i)
	}
	return p, nil
}

// AddWork submits a task. The full-queue policy comes from the pool's
// attributes: reject with ErrFull, block until room frees up, or block
// up to the default timeout when timed waits are enabled.
func (p *Pool) AddWork(task Task) error {
	if task == nil {
		return ErrInvalid
	}
	if p.attr.blockOnAdd && p.attr.timedWait {
		return p.TimedAddWork(task, p.attr.timeout)
	}
	if p.attr.blockOnAdd {
		for {
			guard, err := p.reserveRoom()
			if err != nil {
				return err
			}
			err = p.enqueueTask(task, guard)
			if !errors.Is(err, ErrFull) {
				return err
			}
			// room was taken before the enqueue landed; wait again
		}
	}
	guard, err := p.queue.Lock()
	if err != nil {
		return p.translate(err)
	}
	if p.queue.IsFull() {
		guard.Unlock()
		return ErrFull
	}
	return p.enqueueTask(task, guard)
}

// TimedAddWork submits a task, blocking up to timeout for queue room
// regardless of the pool's blocking attributes. Returns ErrTimedOut on
// expiry and ErrInvalid for a non-positive timeout.
func (p *Pool) TimedAddWork(task Task, timeout time.Duration) error {
	if task == nil || timeout <= 0 {
		return ErrInvalid
	}
	deadline := time.Now().Add(timeout)
	for {
		var guard *cqueue.Guard[Task]
		for p.queue.IsFull() {
			remaining := time.Until(deadline)
			if remaining <= 0 {
				return ErrTimedOut
			}
			g, err := p.queue.TimedWaitForNotFull(remaining)
			if err != nil {
				if errors.Is(err, cqueue.ErrWaitCanceled) {
					continue
				}
				return p.translate(err)
			}
			guard = g
		}
		err := p.enqueueTask(task, guard)
		if !errors.Is(err, ErrFull) {
			return err
		}
	}
}

// reserveRoom blocks until the queue has room, returning the guard
// that holds the queue locked for the caller. Canceled waits are
// retried; a nil guard means the queue had room on first check.
func (p *Pool) reserveRoom() (*cqueue.Guard[Task], error) {
	for p.queue.IsFull() {
		guard, err := p.queue.WaitForNotFull()
		if err == nil {
			return guard, nil
		}
		if !errors.Is(err, cqueue.ErrWaitCanceled) {
			return nil, p.translate(err)
		}
	}
	return nil, nil
}

// enqueueTask appends the task and releases the guard, if any. The
// guard is consumed either way.
func (p *Pool) enqueueTask(task Task, guard *cqueue.Guard[Task]) error {
	err := p.queue.Enqueue(task)
	if guard != nil {
		guard.Unlock()
	}
	if err != nil {
		return p.translate(err)
	}
	p.submitted.Add(1)
	return nil
}

// Wait blocks until the task queue is empty and no worker is executing
// a task body. When the timed-wait attribute is enabled the default
// timeout bounds the wait. Returns ErrDestroyed once the pool has been
// destroyed.
func (p *Pool) Wait() error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}
	return p.waitIdle()
}

// waitIdle is Wait without the destroyed-pool gate; Destroy's graceful
// drain runs it after the destroyed flag is already set.
func (p *Pool) waitIdle() error {
	if p.attr.timedWait {
		return p.timedWaitIdle(p.attr.timeout)
	}
	var guard *cqueue.Guard[Task]
	for !p.queue.IsEmpty() {
		g, err := p.queue.WaitForEmpty()
		if err != nil {
			return p.translate(err)
		}
		guard = g
	}
	// the queue stays locked (when a wait was needed) so nothing can
	// be submitted between the drain and the idle check
	p.running.Lock()
	p.running.Unlock()
	if guard != nil {
		guard.Unlock()
	}
	return nil
}

// TimedWait is Wait bounded by timeout. Returns ErrTimedOut when the
// pool did not go idle in time, ErrInvalid for a non-positive timeout,
// and ErrDestroyed once the pool has been destroyed.
func (p *Pool) TimedWait(timeout time.Duration) error {
	if p.destroyed.Load() {
		return ErrDestroyed
	}
	return p.timedWaitIdle(timeout)
}

func (p *Pool) timedWaitIdle(timeout time.Duration) error {
	if timeout <= 0 {
		return ErrInvalid
	}
	deadline := time.Now().Add(timeout)
	var guard *cqueue.Guard[Task]
	for !p.queue.IsEmpty() {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ErrTimedOut
		}
		g, err := p.queue.TimedWaitForEmpty(remaining)
		if err != nil {
			return p.translate(err)
		}
		guard = g
	}
	if !p.timedWriteLock(time.Until(deadline)) {
		if guard != nil {
			guard.Unlock()
		}
		return ErrTimedOut
	}
	p.running.Unlock()
	if guard != nil {
		guard.Unlock()
	}
	return nil
}

// CancelWait unblocks every goroutine currently blocked in Wait,
// AddWork, or a worker's idle wait. Unblocked waits report
// ErrWaitCanceled; workers simply re-check for work.
func (p *Pool) CancelWait() error {
	return p.translate(p.queue.CancelWait())
}

// Stats returns a snapshot of pool activity. Counters race with
// ongoing work and are only approximate while the pool is busy.
func (p *Pool) Stats() Stats {
	return Stats{
		Workers:   p.attr.threadCount,
		Queued:    p.queue.Size(),
		Running:   p.active.Load(),
		Submitted: p.submitted.Load(),
		Completed: p.completed.Load(),
	}
}

// Destroy shuts the pool down and destroys the task queue. Graceful
// shutdown performs an implicit Wait so every queued task completes;
// forceful shutdown abandons queued tasks and, under
// CancelAsynchronous, cancels the context of running ones. Returns
// ErrInvalid for an unknown flag or a second destroy.
func (p *Pool) Destroy(flag ShutdownFlag) error {
	if flag != ShutdownGraceful && flag != ShutdownForceful {
		return ErrInvalid
	}
	if !p.destroyed.CompareAndSwap(false, true) {
		return ErrInvalid
	}
	if flag == ShutdownGraceful {
		p.waitIdle()
		p.state.Store(stateGraceful)
	} else {
		p.state.Store(stateForceful)
		p.cancel()
	}
	p.queue.CancelWait()

	joined := make(chan struct{})
	go func() {
		p.workers.Wait()
		close(joined)
	}()
	nudge := time.NewTicker(joinNudgeInterval)
	for alive := true; alive; {
		select {
		case <-joined:
			alive = false
		case <-nudge.C:
			p.queue.CancelWait()
		}
	}
	nudge.Stop()

	p.cancel()
	return p.translate(p.queue.Destroy())
}

// timedWriteLock acquires the write side of the running lock, giving
// up after timeout. A late acquisition by the helper goroutine is
// released immediately so the lock is never leaked.
func (p *Pool) timedWriteLock(timeout time.Duration) bool {
	if timeout <= 0 {
		return false
	}
	acquired := make(chan struct{})
	var winner atomic.Int32 // 0 undecided, 1 caller, 2 timeout
	go func() {
		p.running.Lock()
		if winner.CompareAndSwap(0, 1) {
			close(acquired)
			return
		}
		p.running.Unlock()
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-acquired:
		return true
	case <-timer.C:
		if winner.CompareAndSwap(0, 2) {
			return false
		}
		// the helper won the race; the lock is ours after all
		<-acquired
		return true
	}
}

// translate maps queue-level errors onto the pool's error surface.
func (p *Pool) translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, cqueue.ErrFull):
		return ErrFull
	case errors.Is(err, cqueue.ErrTimedOut):
		return ErrTimedOut
	case errors.Is(err, cqueue.ErrWaitCanceled):
		return ErrWaitCanceled
	case errors.Is(err, cqueue.ErrDestroyed):
		return ErrDestroyed
	case errors.Is(err, cqueue.ErrInvalid):
		return ErrInvalid
	default:
		return err
	}
}
