// File: cqueue/cqueue_test.go
// Author: Blackbluue
// License: Apache-2.0

package cqueue

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

const probeDelay = 50 * time.Millisecond

// waitForFlag polls an atomic flag with a deadline, for asserting that
// a goroutine has (or has not) gotten past a blocking call.
func waitForFlag(t *testing.T, flag *atomic.Bool, want bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if flag.Load() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal(msg)
}

func TestBoundedScenario(t *testing.T) {
	q := New[int](5, nil)
	for i := 1; i <= 5; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	if err := q.Enqueue(6); !errors.Is(err, ErrFull) {
		t.Errorf("Enqueue(6) = %v, want ErrFull", err)
	}
	if q.Size() != 5 {
		t.Errorf("Size after rejected enqueue = %d, want 5", q.Size())
	}
	for i := 1; i <= 5; i++ {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != i {
			t.Errorf("Dequeue = %d, want %d", got, i)
		}
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrEmpty) {
		t.Errorf("Dequeue on empty = %v, want ErrEmpty", err)
	}
	if err := q.Destroy(); err != nil {
		t.Errorf("Destroy: %v", err)
	}
}

func TestFIFOInterleaved(t *testing.T) {
	q := New[int](Unlimited, nil)
	next := 1
	want := 1
	for round := 0; round < 10; round++ {
		for i := 0; i < 7; i++ {
			if err := q.Enqueue(next); err != nil {
				t.Fatalf("Enqueue(%d): %v", next, err)
			}
			next++
		}
		for i := 0; i < 5; i++ {
			got, err := q.Dequeue()
			if err != nil {
				t.Fatalf("Dequeue: %v", err)
			}
			if got != want {
				t.Fatalf("Dequeue = %d, want %d", got, want)
			}
			want++
		}
	}
	// drain the remainder, still in order
	for !q.IsEmpty() {
		got, err := q.Dequeue()
		if err != nil {
			t.Fatalf("Dequeue: %v", err)
		}
		if got != want {
			t.Fatalf("Dequeue = %d, want %d", got, want)
		}
		want++
	}
	if want != next {
		t.Errorf("drained up to %d, want %d", want-1, next-1)
	}
}

func TestPeekAndClear(t *testing.T) {
	var freed []string
	q := New[string](Unlimited, func(s string) { freed = append(freed, s) })
	q.Enqueue("a")
	q.Enqueue("b")
	if got, err := q.Peek(); err != nil || got != "a" {
		t.Errorf("Peek = %q, %v, want \"a\", nil", got, err)
	}
	if q.Size() != 2 {
		t.Errorf("Size after Peek = %d, want 2", q.Size())
	}
	if err := q.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if !q.IsEmpty() {
		t.Error("queue should be empty after Clear")
	}
	if len(freed) != 2 {
		t.Errorf("destructor saw %v, want both items", freed)
	}
}

func TestReentrantLockDetection(t *testing.T) {
	q := New[int](4, nil)
	guard, err := q.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := q.Lock(); !errors.Is(err, ErrDeadlock) {
		t.Errorf("reentrant Lock = %v, want ErrDeadlock", err)
	}
	if _, err := q.WaitForNotEmpty(); !errors.Is(err, ErrDeadlock) {
		t.Errorf("WaitForNotEmpty under own lock = %v, want ErrDeadlock", err)
	}
	if _, err := q.TimedWaitForNotFull(time.Second); !errors.Is(err, ErrDeadlock) {
		t.Errorf("TimedWaitForNotFull under own lock = %v, want ErrDeadlock", err)
	}
	// the failed attempts must not have corrupted the lock state
	if err := guard.Unlock(); err != nil {
		t.Errorf("Unlock after ErrDeadlock = %v, want nil", err)
	}
	if err := guard.Unlock(); !errors.Is(err, ErrNotOwner) {
		t.Errorf("second Unlock = %v, want ErrNotOwner", err)
	}
}

func TestUnlockFromWrongGoroutine(t *testing.T) {
	q := New[int](4, nil)
	guard, err := q.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	result := make(chan error)
	go func() { result <- guard.Unlock() }()
	if err := <-result; !errors.Is(err, ErrNotOwner) {
		t.Errorf("Unlock from another goroutine = %v, want ErrNotOwner", err)
	}
	if err := guard.Unlock(); err != nil {
		t.Errorf("Unlock from owner = %v, want nil", err)
	}
}

func TestManualLockBatchesOperations(t *testing.T) {
	q := New[int](Unlimited, nil)
	guard, err := q.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	// several operations inside one critical section
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue under manual lock: %v", err)
		}
	}
	if got, err := q.Dequeue(); err != nil || got != 1 {
		t.Fatalf("Dequeue under manual lock = %d, %v", got, err)
	}

	// another goroutine must be shut out until the guard is released
	var passed atomic.Bool
	go func() {
		q.Enqueue(99)
		passed.Store(true)
	}()
	time.Sleep(probeDelay)
	if passed.Load() {
		t.Fatal("concurrent enqueue got through a held manual lock")
	}
	if err := guard.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	waitForFlag(t, &passed, true, "enqueue still blocked after unlock")
	if q.Size() != 3 {
		t.Errorf("Size = %d, want 3", q.Size())
	}
}

func TestWaitUnboundedRejected(t *testing.T) {
	q := New[int](Unlimited, nil)
	if _, err := q.WaitForFull(); !errors.Is(err, ErrUnbounded) {
		t.Errorf("WaitForFull = %v, want ErrUnbounded", err)
	}
	if _, err := q.WaitForNotFull(); !errors.Is(err, ErrUnbounded) {
		t.Errorf("WaitForNotFull = %v, want ErrUnbounded", err)
	}
	if _, err := q.TimedWaitForFull(time.Second); !errors.Is(err, ErrUnbounded) {
		t.Errorf("TimedWaitForFull = %v, want ErrUnbounded", err)
	}
	if _, err := q.TimedWaitForNotFull(time.Second); !errors.Is(err, ErrUnbounded) {
		t.Errorf("TimedWaitForNotFull = %v, want ErrUnbounded", err)
	}
}

func TestWaitForFullWakesWhenFilled(t *testing.T) {
	q := New[int](3, nil)
	var woke atomic.Bool
	result := make(chan error)
	go func() {
		guard, err := q.WaitForFull()
		woke.Store(true)
		if err == nil {
			if !q.IsFull() {
				err = errors.New("woke with the queue not at capacity")
			}
			guard.Unlock()
		}
		result <- err
	}()
	time.Sleep(probeDelay) // let the waiter reach its condition wait

	// fill the queue under the manual lock; the is-full broadcast stays
	// batched until the guard is released
	guard, err := q.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	for i := 1; i <= 3; i++ {
		if err := q.Enqueue(i); err != nil {
			t.Fatalf("Enqueue(%d): %v", i, err)
		}
	}
	time.Sleep(probeDelay)
	if woke.Load() {
		t.Fatal("waiter woke before the manual lock was released")
	}
	if err := guard.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	select {
	case err := <-result:
		if err != nil {
			t.Errorf("WaitForFull = %v, want success", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitForFull never woke on a filled queue")
	}
}

func TestCancelWaitWakesWithoutConsuming(t *testing.T) {
	q := New[int](4, nil)
	var entered, woke atomic.Bool
	result := make(chan error)
	go func() {
		entered.Store(true)
		_, err := q.WaitForNotEmpty()
		woke.Store(true)
		result <- err
	}()
	waitForFlag(t, &entered, true, "waiter never started")
	time.Sleep(probeDelay) // let it reach the condition wait
	if woke.Load() {
		t.Fatal("waiter returned before cancel")
	}
	if err := q.CancelWait(); err != nil {
		t.Fatalf("CancelWait: %v", err)
	}
	if err := <-result; !errors.Is(err, ErrWaitCanceled) {
		t.Errorf("canceled wait = %v, want ErrWaitCanceled", err)
	}
	// the queue is untouched and fully usable afterwards
	if !q.IsEmpty() {
		t.Error("queue should still be empty")
	}
	if err := q.Enqueue(7); err != nil {
		t.Fatalf("Enqueue after cancel: %v", err)
	}
	guard, err := q.WaitForNotEmpty()
	if err != nil {
		t.Fatalf("WaitForNotEmpty after cancel = %v, want success", err)
	}
	if got, err := q.Dequeue(); err != nil || got != 7 {
		t.Errorf("Dequeue = %d, %v, want 7, nil", got, err)
	}
	guard.Unlock()
}

func TestTimedWaitExpires(t *testing.T) {
	q := New[int](4, nil)
	start := time.Now()
	_, err := q.TimedWaitForNotEmpty(probeDelay)
	if !errors.Is(err, ErrTimedOut) {
		t.Fatalf("TimedWaitForNotEmpty = %v, want ErrTimedOut", err)
	}
	if elapsed := time.Since(start); elapsed < probeDelay {
		t.Errorf("returned after %v, want at least %v", elapsed, probeDelay)
	}
	if _, err := q.TimedWaitForNotEmpty(-time.Second); !errors.Is(err, ErrInvalid) {
		t.Errorf("negative timeout = %v, want ErrInvalid", err)
	}
}

func TestTimedWaitSucceedsBeforeDeadline(t *testing.T) {
	q := New[int](4, nil)
	go func() {
		time.Sleep(probeDelay)
		q.Enqueue(1)
	}()
	guard, err := q.TimedWaitForNotEmpty(5 * time.Second)
	if err != nil {
		t.Fatalf("TimedWaitForNotEmpty = %v, want success", err)
	}
	if q.IsEmpty() {
		t.Error("queue should hold the item on wakeup")
	}
	guard.Unlock()
}

func TestDeferredSignalsFlushAtUnlock(t *testing.T) {
	q := New[int](4, nil)
	var woke atomic.Bool
	result := make(chan error)
	go func() {
		guard, err := q.WaitForNotEmpty()
		woke.Store(true)
		if err == nil {
			guard.Unlock()
		}
		result <- err
	}()
	time.Sleep(probeDelay) // let the consumer reach its condition wait

	guard, err := q.Lock()
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if err := q.Enqueue(1); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	// the not-empty broadcast is deferred while the lock is held
	time.Sleep(probeDelay)
	if woke.Load() {
		t.Fatal("waiter woke before the manual lock was released")
	}
	if err := guard.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	if err := <-result; err != nil {
		t.Errorf("waiter after flush = %v, want success", err)
	}
}

func TestWaitForEmptyBlocksUntilDrained(t *testing.T) {
	q := New[int](Unlimited, nil)
	for i := 0; i < 3; i++ {
		q.Enqueue(i)
	}
	go func() {
		for i := 0; i < 3; i++ {
			time.Sleep(probeDelay / 2)
			q.Dequeue()
		}
	}()
	guard, err := q.WaitForEmpty()
	if err != nil {
		t.Fatalf("WaitForEmpty = %v, want success", err)
	}
	if !q.IsEmpty() {
		t.Error("queue should be empty when WaitForEmpty returns")
	}
	guard.Unlock()
}

func TestDestroyWakesWaiters(t *testing.T) {
	q := New[int](4, nil)
	const waiters = 3
	results := make(chan error, waiters)
	for i := 0; i < waiters; i++ {
		go func() {
			_, err := q.WaitForNotEmpty()
			results <- err
		}()
	}
	time.Sleep(probeDelay) // let them block
	if err := q.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	for i := 0; i < waiters; i++ {
		select {
		case err := <-results:
			if !errors.Is(err, ErrDestroyed) {
				t.Errorf("destroyed wait = %v, want ErrDestroyed", err)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("waiter never unblocked by Destroy")
		}
	}
	// every operation after teardown is refused
	if err := q.Enqueue(1); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Enqueue after Destroy = %v, want ErrDestroyed", err)
	}
	if _, err := q.Dequeue(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("Dequeue after Destroy = %v, want ErrDestroyed", err)
	}
	if err := q.Destroy(); !errors.Is(err, ErrDestroyed) {
		t.Errorf("second Destroy = %v, want ErrDestroyed", err)
	}
}

func TestDestroySeesWaiterAbortingEntry(t *testing.T) {
	q := New[int](4, nil)
	// a goroutine has committed to a condition wait but has not reached
	// the mutex yet, exactly the state between waitFor's counter
	// increment and its lockQueue call
	q.waitingForCond.Add(1)
	done := make(chan error, 1)
	go func() { done <- q.Destroy() }()
	time.Sleep(probeDelay) // let Destroy park in its quiescence loop

	// the committed waiter now observes teardown at the gate and backs
	// out, as waitFor's entry error path does
	if _, err := q.lockQueue(); !errors.Is(err, ErrDestroyed) {
		t.Fatalf("lockQueue during teardown = %v, want ErrDestroyed", err)
	}
	q.leaveWait()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Destroy: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Destroy never woke after the last waiter backed out")
	}
}

func TestDestroyRacesWaitEntry(t *testing.T) {
	const goroutines = 8
	for round := 0; round < 50; round++ {
		q := New[int](4, nil)
		var wg sync.WaitGroup
		for i := 0; i < goroutines; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					guard, err := q.WaitForNotEmpty()
					if err == nil {
						guard.Unlock()
						continue
					}
					if errors.Is(err, ErrDestroyed) {
						return
					}
				}
			}()
		}
		done := make(chan error, 1)
		go func() { done <- q.Destroy() }()
		select {
		case err := <-done:
			if err != nil {
				t.Fatalf("round %d: Destroy: %v", round, err)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("round %d: Destroy wedged against wait entries", round)
		}
		wg.Wait()
	}
}

func TestDestroyRunsDestructor(t *testing.T) {
	var freed atomic.Int64
	q := New[int](Unlimited, func(int) { freed.Add(1) })
	for i := 0; i < 4; i++ {
		q.Enqueue(i)
	}
	if err := q.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if freed.Load() != 4 {
		t.Errorf("destructor ran %d times, want 4", freed.Load())
	}
}

func TestConcurrentProducersConsumers(t *testing.T) {
	const (
		producers    = 4
		consumers    = 4
		perProducer  = 500
		queueBound   = 8
		overallLimit = 10 * time.Second
	)
	q := New[int](queueBound, nil)

	var sent, received atomic.Int64
	var producerWg, consumerWg sync.WaitGroup

	for p := 0; p < producers; p++ {
		producerWg.Add(1)
		go func(pid int) {
			defer producerWg.Done()
			for i := 0; i < perProducer; i++ {
				v := pid*perProducer + i
				for {
					err := q.Enqueue(v)
					if err == nil {
						break
					}
					if !errors.Is(err, ErrFull) {
						return
					}
					if guard, werr := q.WaitForNotFull(); werr == nil {
						guard.Unlock()
					}
				}
				sent.Add(int64(v))
			}
		}(p)
	}

	for c := 0; c < consumers; c++ {
		consumerWg.Add(1)
		go func() {
			defer consumerWg.Done()
			for {
				v, err := q.Dequeue()
				if err == nil {
					received.Add(int64(v))
					continue
				}
				if errors.Is(err, ErrDestroyed) {
					return
				}
				guard, werr := q.WaitForNotEmpty()
				if werr == nil {
					guard.Unlock()
					continue
				}
				if errors.Is(werr, ErrDestroyed) {
					return
				}
			}
		}()
	}

	producersDone := make(chan struct{})
	go func() {
		producerWg.Wait()
		close(producersDone)
	}()
	select {
	case <-producersDone:
	case <-time.After(overallLimit):
		t.Fatal("producers wedged")
	}

	// drain, then tear down to release parked consumers
	deadline := time.Now().Add(overallLimit)
	for !q.IsEmpty() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if err := q.Destroy(); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	consumersDone := make(chan struct{})
	go func() {
		consumerWg.Wait()
		close(consumersDone)
	}()
	select {
	case <-consumersDone:
	case <-time.After(overallLimit):
		t.Fatal("consumers wedged after Destroy")
	}

	if sent.Load() != received.Load() {
		t.Errorf("checksum mismatch: sent %d, received %d", sent.Load(), received.Load())
	}
}
