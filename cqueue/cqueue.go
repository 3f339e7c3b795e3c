// File: cqueue/cqueue.go
// Author: Blackbluue
// License: Apache-2.0
//
// Concurrent FIFO queue: one mutex, four condition variables, deferred
// signal batching under a manual lock, and a cooperative destruction
// protocol that drains blocked goroutines before teardown completes.

package cqueue

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/petermattis/goid"

	"github.com/Blackbluue/BuildingBlocks-sub000/fifo"
)

// Unlimited is the capacity of a queue with no upper bound.
const Unlimited = fifo.Unlimited

// deferredSignals holds the four condition variables and the pending
// transition flags. While the manual lock is held by the mutating
// goroutine, transitions are recorded here instead of broadcast;
// flushSignals sends the batch once the lock is released.
type deferredSignals struct {
	condIsEmpty  *sync.Cond
	condIsFull   *sync.Cond
	condNotEmpty *sync.Cond
	condNotFull  *sync.Cond
	isEmpty      bool
	isFull       bool
	notEmpty     bool
	notFull      bool
}

// Queue is a thread-safe FIFO queue of T. The zero value is not usable;
// construct with New.
type Queue[T any] struct {
	mu      sync.Mutex
	store   *fifo.Queue[T]
	signals deferredSignals

	// lockFree is signaled whenever the mutex is released with no
	// goroutine left waiting for it; Destroy blocks on it until the
	// queue is quiescent.
	lockFree *sync.Cond

	// waitingForLock counts goroutines blocked acquiring the mutex;
	// waitingForCond counts goroutines inside a condition wait. Both
	// are read outside the mutex.
	waitingForLock atomic.Int64
	waitingForCond atomic.Int64

	// owner is the goroutine id holding the manual lock, 0 when free.
	owner atomic.Int64

	destroying atomic.Bool
	cancelWait atomic.Bool
}

// New creates a concurrent queue. A capacity of Unlimited leaves the
// queue unbounded. free, when non-nil, is applied to items discarded by
// Clear and Destroy.
func New[T any](capacity int, free func(T)) *Queue[T] {
	q := &Queue[T]{store: fifo.New[T](capacity, free)}
	q.signals.condIsEmpty = sync.NewCond(&q.mu)
	q.signals.condIsFull = sync.NewCond(&q.mu)
	q.signals.condNotEmpty = sync.NewCond(&q.mu)
	q.signals.condNotFull = sync.NewCond(&q.mu)
	q.lockFree = sync.NewCond(&q.mu)
	return q
}

// lockQueue acquires the internal mutex on behalf of an operation,
// unless the calling goroutine already holds the manual lock, in which
// case the operation proceeds under that lock. held reports whether
// this call took the mutex. Returns ErrDestroyed when teardown began
// before or while acquiring.
func (q *Queue[T]) lockQueue() (held bool, err error) {
	if q.destroying.Load() {
		return false, ErrDestroyed
	}
	if q.owner.Load() == goid.Get() {
		return false, nil
	}
	q.waitingForLock.Add(1)
	q.mu.Lock()
	q.waitingForLock.Add(-1)
	if q.destroying.Load() {
		q.unlockQueue(true)
		return false, ErrDestroyed
	}
	return true, nil
}

// unlockQueue releases the mutex after an operation. When the manual
// lock is held by the caller the mutex is retained, except during
// teardown, where the manual lock is forfeited so Destroy can proceed.
func (q *Queue[T]) unlockQueue(held bool) {
	destroying := q.destroying.Load()
	if !held && !destroying {
		// the manual lock stays with its owner
		return
	}
	if destroying {
		q.owner.Store(0)
	}
	if q.waitingForLock.Load() == 0 {
		q.lockFree.Signal()
	}
	q.mu.Unlock()
}

// flushSignals broadcasts every pending transition and clears the
// batch. Caller must hold the mutex.
func (q *Queue[T]) flushSignals() {
	s := &q.signals
	if s.isEmpty {
		s.condIsEmpty.Broadcast()
		s.isEmpty = false
	}
	if s.isFull {
		s.condIsFull.Broadcast()
		s.isFull = false
	}
	if s.notEmpty {
		s.condNotEmpty.Broadcast()
		s.notEmpty = false
	}
	if s.notFull {
		s.condNotFull.Broadcast()
		s.notFull = false
	}
}

// sendSignals flushes pending transitions unless the calling goroutine
// holds the manual lock, in which case they stay batched until the
// guard is released.
func (q *Queue[T]) sendSignals() {
	if q.owner.Load() == goid.Get() {
		return
	}
	q.flushSignals()
}

// wakeAll broadcasts every condition variable regardless of pending
// flags. Used by CancelWait and Destroy.
func (q *Queue[T]) wakeAll() {
	s := &q.signals
	s.condIsEmpty.Broadcast()
	s.condIsFull.Broadcast()
	s.condNotEmpty.Broadcast()
	s.condNotFull.Broadcast()
}

func (q *Queue[T]) isEmptyLocked() bool { return q.store.IsEmpty() }

func (q *Queue[T]) isFullLocked() bool {
	if q.store.Capacity() == fifo.Unlimited {
		return false
	}
	return q.store.IsFull()
}

// keepWaiting reports whether a condition wait should stay blocked.
// CancelWait and Destroy both clear it.
func (q *Queue[T]) keepWaiting() bool {
	return !q.cancelWait.Load() && !q.destroying.Load()
}

// Size returns the number of queued items, 0 once the queue is
// destroyed.
func (q *Queue[T]) Size() int {
	held, err := q.lockQueue()
	if err != nil {
		return 0
	}
	n := q.store.Size()
	q.unlockQueue(held)
	return n
}

// Capacity returns the configured capacity, Unlimited for unbounded
// queues.
func (q *Queue[T]) Capacity() int {
	if q.destroying.Load() {
		return Unlimited
	}
	return q.store.Capacity()
}

// IsEmpty reports whether the queue holds no items. A destroyed queue
// reports empty.
func (q *Queue[T]) IsEmpty() bool {
	held, err := q.lockQueue()
	if err != nil {
		return true
	}
	empty := q.isEmptyLocked()
	q.unlockQueue(held)
	return empty
}

// IsFull reports whether the queue is at capacity. Unbounded and
// destroyed queues are never full.
func (q *Queue[T]) IsFull() bool {
	held, err := q.lockQueue()
	if err != nil {
		return false
	}
	full := q.isFullLocked()
	q.unlockQueue(held)
	return full
}

// Enqueue appends item to the back of the queue. Returns ErrFull when
// the queue is at capacity (backpressure; the queue is unchanged) and
// ErrDestroyed when teardown began. Wakes not-empty waiters, and
// is-full waiters when this enqueue fills the queue; both wakes are
// deferred while the caller holds the manual lock.
func (q *Queue[T]) Enqueue(item T) error {
	held, err := q.lockQueue()
	if err != nil {
		return err
	}
	if q.isFullLocked() {
		q.unlockQueue(held)
		return ErrFull
	}
	if err := q.store.Enqueue(item); err != nil {
		q.unlockQueue(held)
		return ErrFull
	}
	q.signals.notEmpty = true
	if q.isFullLocked() {
		q.signals.isFull = true
	}
	q.sendSignals()
	q.unlockQueue(held)
	return nil
}

// Dequeue removes and returns the front item. Returns ErrEmpty when the
// queue holds nothing and ErrDestroyed when teardown began. Wakes
// not-full waiters, and is-empty waiters when this dequeue drains the
// queue; wakes are deferred while the caller holds the manual lock.
func (q *Queue[T]) Dequeue() (T, error) {
	var zero T
	held, err := q.lockQueue()
	if err != nil {
		return zero, err
	}
	if q.isEmptyLocked() {
		q.unlockQueue(held)
		return zero, ErrEmpty
	}
	item, _ := q.store.Dequeue()
	q.signals.notFull = true
	if q.isEmptyLocked() {
		q.signals.isEmpty = true
	}
	q.sendSignals()
	q.unlockQueue(held)
	return item, nil
}

// Peek returns the front item without removing it. Returns ErrEmpty on
// an empty queue and ErrDestroyed when teardown began.
func (q *Queue[T]) Peek() (T, error) {
	var zero T
	held, err := q.lockQueue()
	if err != nil {
		return zero, err
	}
	item, perr := q.store.Peek()
	q.unlockQueue(held)
	if perr != nil {
		return zero, ErrEmpty
	}
	return item, nil
}

// Clear discards every queued item, applying the destructor to each,
// then wakes not-full and is-empty waiters.
func (q *Queue[T]) Clear() error {
	held, err := q.lockQueue()
	if err != nil {
		return err
	}
	q.store.Clear()
	q.signals.notFull = true
	q.signals.isEmpty = true
	q.sendSignals()
	q.unlockQueue(held)
	return nil
}

// Lock acquires the manual lock for the calling goroutine, blocking
// until the mutex is available. Until the returned Guard is released,
// every queue operation from this goroutine runs inside the same
// critical section and all condition broadcasts are deferred.
//
// Returns ErrDeadlock when the caller already holds the manual lock
// (the lock state is unchanged) and ErrDestroyed when teardown began.
func (q *Queue[T]) Lock() (*Guard[T], error) {
	if q.destroying.Load() {
		return nil, ErrDestroyed
	}
	if q.owner.Load() == goid.Get() {
		return nil, ErrDeadlock
	}
	if _, err := q.lockQueue(); err != nil {
		return nil, err
	}
	q.owner.Store(goid.Get())
	return &Guard[T]{queue: q}, nil
}

// CancelWait wakes every goroutine blocked in a WaitFor* call without
// re-evaluating its condition; each returns ErrWaitCanceled. The queue
// remains usable. The cancellation resets once no goroutine remains in
// a condition wait, so later waits block normally.
func (q *Queue[T]) CancelWait() error {
	held, err := q.lockQueue()
	if err != nil {
		return err
	}
	// flag and broadcast happen under the mutex so a waiter between its
	// predicate check and cond.Wait cannot miss the wake
	q.cancelWait.Store(true)
	q.wakeAll()
	q.unlockQueue(held)
	return nil
}

// WaitForEmpty blocks until the queue is empty. On success the queue is
// manually locked by the caller; release the returned Guard.
func (q *Queue[T]) WaitForEmpty() (*Guard[T], error) {
	return q.waitFor(q.signals.condIsEmpty, q.isEmptyLocked)
}

// TimedWaitForEmpty is WaitForEmpty bounded by timeout. A zero timeout
// waits indefinitely; a negative timeout is ErrInvalid.
func (q *Queue[T]) TimedWaitForEmpty(timeout time.Duration) (*Guard[T], error) {
	return q.timedWaitFor(q.signals.condIsEmpty, q.isEmptyLocked, timeout)
}

// WaitForNotEmpty blocks until the queue holds at least one item. On
// success the queue is manually locked by the caller; release the
// returned Guard.
func (q *Queue[T]) WaitForNotEmpty() (*Guard[T], error) {
	return q.waitFor(q.signals.condNotEmpty, func() bool { return !q.isEmptyLocked() })
}

// TimedWaitForNotEmpty is WaitForNotEmpty bounded by timeout. A zero
// timeout waits indefinitely; a negative timeout is ErrInvalid.
func (q *Queue[T]) TimedWaitForNotEmpty(timeout time.Duration) (*Guard[T], error) {
	return q.timedWaitFor(q.signals.condNotEmpty, func() bool { return !q.isEmptyLocked() }, timeout)
}

// WaitForFull blocks until the queue is at capacity. Rejected with
// ErrUnbounded on queues with unlimited capacity. On success the queue
// is manually locked by the caller; release the returned Guard.
func (q *Queue[T]) WaitForFull() (*Guard[T], error) {
	if err := q.requireBounded(); err != nil {
		return nil, err
	}
	return q.waitFor(q.signals.condIsFull, q.isFullLocked)
}

// TimedWaitForFull is WaitForFull bounded by timeout. A zero timeout
// waits indefinitely; a negative timeout is ErrInvalid.
func (q *Queue[T]) TimedWaitForFull(timeout time.Duration) (*Guard[T], error) {
	if err := q.requireBounded(); err != nil {
		return nil, err
	}
	return q.timedWaitFor(q.signals.condIsFull, q.isFullLocked, timeout)
}

// WaitForNotFull blocks until the queue has room. Rejected with
// ErrUnbounded on queues with unlimited capacity. On success the queue
// is manually locked by the caller; release the returned Guard.
func (q *Queue[T]) WaitForNotFull() (*Guard[T], error) {
	if err := q.requireBounded(); err != nil {
		return nil, err
	}
	return q.waitFor(q.signals.condNotFull, func() bool { return !q.isFullLocked() })
}

// TimedWaitForNotFull is WaitForNotFull bounded by timeout. A zero
// timeout waits indefinitely; a negative timeout is ErrInvalid.
func (q *Queue[T]) TimedWaitForNotFull(timeout time.Duration) (*Guard[T], error) {
	if err := q.requireBounded(); err != nil {
		return nil, err
	}
	return q.timedWaitFor(q.signals.condNotFull, func() bool { return !q.isFullLocked() }, timeout)
}

func (q *Queue[T]) requireBounded() error {
	if q.destroying.Load() {
		return ErrDestroyed
	}
	if q.store.Capacity() == fifo.Unlimited {
		return ErrUnbounded
	}
	return nil
}

// waitFor blocks on cond until pred holds, the wait is canceled, or
// teardown begins. On success the manual lock is transferred to the
// caller.
func (q *Queue[T]) waitFor(cond *sync.Cond, pred func() bool) (*Guard[T], error) {
	if q.destroying.Load() {
		return nil, ErrDestroyed
	}
	if q.owner.Load() == goid.Get() {
		return nil, ErrDeadlock
	}
	// counted before acquiring the mutex so CancelWait observes
	// goroutines still on their way into the wait
	q.waitingForCond.Add(1)
	if _, err := q.lockQueue(); err != nil {
		q.leaveWait()
		return nil, err
	}
	for !pred() && q.keepWaiting() {
		cond.Wait()
	}
	q.waitingForCond.Add(-1)
	if !q.keepWaiting() {
		return nil, q.abortWait()
	}
	q.owner.Store(goid.Get())
	return &Guard[T]{queue: q}, nil
}

// timedWaitFor is waitFor with an upper bound on the blocking time.
// sync.Cond has no timed wait, so a timer broadcast wakes the condition
// and the loop re-checks the deadline.
func (q *Queue[T]) timedWaitFor(cond *sync.Cond, pred func() bool, timeout time.Duration) (*Guard[T], error) {
	if timeout == 0 {
		return q.waitFor(cond, pred)
	}
	if timeout < 0 {
		return nil, ErrInvalid
	}
	if q.destroying.Load() {
		return nil, ErrDestroyed
	}
	if q.owner.Load() == goid.Get() {
		return nil, ErrDeadlock
	}
	deadline := time.Now().Add(timeout)
	// the expiry broadcast takes the mutex so it cannot slip between a
	// waiter's deadline check and its cond.Wait registration
	timer := time.AfterFunc(timeout, func() {
		q.mu.Lock()
		cond.Broadcast()
		q.mu.Unlock()
	})
	defer timer.Stop()

	q.waitingForCond.Add(1)
	if _, err := q.lockQueue(); err != nil {
		q.leaveWait()
		return nil, err
	}
	for !pred() && q.keepWaiting() {
		if !time.Now().Before(deadline) {
			q.waitingForCond.Add(-1)
			q.unlockQueue(true)
			return nil, ErrTimedOut
		}
		cond.Wait()
	}
	q.waitingForCond.Add(-1)
	if !q.keepWaiting() {
		return nil, q.abortWait()
	}
	q.owner.Store(goid.Get())
	return &Guard[T]{queue: q}, nil
}

// leaveWait backs out of a wait whose entry failed, before the
// condition was ever reached. The waiter count must drop before the
// lockFree signal, and the signal must be sent under the mutex:
// Destroy's quiescence loop may already have sampled this goroutine in
// waitingForCond and parked, and nothing else will wake it.
func (q *Queue[T]) leaveWait() {
	q.waitingForCond.Add(-1)
	q.mu.Lock()
	if q.waitingForLock.Load() == 0 {
		q.lockFree.Signal()
	}
	q.mu.Unlock()
}

// abortWait finishes a wait that was unblocked by CancelWait or by
// teardown. Caller must hold the mutex and must already have left the
// condition-waiter count. Teardown takes precedence over cancellation.
func (q *Queue[T]) abortWait() error {
	if q.waitingForCond.Load() == 0 {
		q.cancelWait.Store(false)
	}
	err := ErrWaitCanceled
	if q.destroying.Load() {
		err = ErrDestroyed
	}
	q.unlockQueue(true)
	return err
}

// Destroy tears the queue down: marks it destroying (sticky), wakes
// every blocked waiter, waits until no goroutine is blocked on the
// mutex or inside a condition wait, then discards all storage through
// the destructor. Operations overlapping with Destroy either complete
// or return ErrDestroyed; operations after it return ErrDestroyed.
func (q *Queue[T]) Destroy() error {
	held, err := q.lockQueue()
	if err != nil {
		return err
	}
	_ = held // the mutex is ours, directly or via the manual lock
	q.destroying.Store(true)
	q.wakeAll()
	// quiescence: every goroutine blocked on the mutex or a condition
	// signals lockFree on its way out
	for q.waitingForLock.Load() > 0 || q.waitingForCond.Load() > 0 {
		q.lockFree.Wait()
	}
	q.store.Clear()
	q.owner.Store(0)
	q.mu.Unlock()
	return nil
}
