// File: pool/worker.go
// Author: Blackbluue
// License: Apache-2.0
//
// Worker loop: wait for work, honor shutdown, dequeue, run the task
// body under the read side of the running lock, repeat.

package pool

import (
	"context"
	"errors"
	"runtime"

	"github.com/Blackbluue/BuildingBlocks-sub000/cqueue"
	"github.com/Blackbluue/BuildingBlocks-sub000/internal/affinity"
)

// worker is the body of one pool goroutine. id is the worker's fixed
// position, used only for CPU pinning.
func (p *Pool) worker(id int) {
	defer p.workers.Done()
	if p.attr.pinWorkers {
		runtime.LockOSThread()
		// best effort; unsupported platforms run unpinned
		_ = affinity.Pin(id)
	}
	for {
		// wait for the task queue to be not empty
		var guard *cqueue.Guard[Task]
		for p.queue.IsEmpty() && p.state.Load() == stateRunning {
			g, err := p.queue.WaitForNotEmpty()
			if err == nil {
				guard = g
				break
			}
			if !errors.Is(err, cqueue.ErrWaitCanceled) {
				// queue destroyed under us
				return
			}
			// canceled wake: re-check shutdown before waiting again
		}

		// shutdown: forceful quits now, graceful once the queue drains
		state := p.state.Load()
		if state == stateForceful ||
			(state == stateGraceful && p.queue.IsEmpty()) {
			if guard != nil {
				guard.Unlock()
			}
			return
		}

		if guard == nil {
			g, err := p.queue.Lock()
			if err != nil {
				return
			}
			guard = g
		}
		task, err := p.queue.Dequeue()
		if err != nil {
			guard.Unlock()
			if errors.Is(err, cqueue.ErrEmpty) {
				// another worker got there first
				continue
			}
			return
		}
		// take the read lock before releasing the queue so idle
		// detection never sees an empty queue with a dequeued task that
		// has not reached its body yet
		p.running.RLock()
		p.active.Add(1)
		guard.Unlock()
		p.runTask(task)
	}
}

// runTask executes one task body while holding the read side of the
// running lock, which is what Wait's idle detection observes. The
// caller has already taken the read lock and bumped the active count.
// Panics in the body are contained; the pool has no channel to report
// them.
func (p *Pool) runTask(task Task) {
	ctx := context.Background()
	if p.attr.cancelType == CancelAsynchronous {
		ctx = p.ctx
	}
	defer func() {
		recover()
		p.active.Add(-1)
		p.running.RUnlock()
		p.completed.Add(1)
	}()
	task(ctx)
}
