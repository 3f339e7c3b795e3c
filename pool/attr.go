// File: pool/attr.go
// Author: Blackbluue
// License: Apache-2.0
//
// Pool attributes. An Attr carries every knob fixed at pool creation;
// the pool copies it, so mutating an Attr after New has no effect on a
// live pool and one Attr can configure many pools.

package pool

import "time"

// CancelType selects how a forceful shutdown treats tasks that are
// already executing.
type CancelType int

const (
	// CancelDeferred lets a running task finish; shutdown is only
	// honored between tasks.
	CancelDeferred CancelType = iota

	// CancelAsynchronous additionally cancels the context passed to
	// the running task body. A task that ignores its context still
	// runs to completion; preemptive termination is not possible for
	// goroutines.
	CancelAsynchronous
)

// Attribute defaults and bounds.
const (
	DefaultThreads   = 4                // workers when unspecified
	MaxThreads       = 64               // hard ceiling on workers
	DefaultQueueSize = 16               // task queue capacity when unspecified
	DefaultTimeout   = 10 * time.Second // blocking-call timeout when unspecified
)

// Attr is the set of pool creation attributes. The zero value is not
// usable; construct with NewAttr.
type Attr struct {
	threadCount int
	queueSize   int
	blockOnAdd  bool
	timedWait   bool
	timeout     time.Duration
	cancelType  CancelType
	pinWorkers  bool
}

// NewAttr returns an attribute object holding the defaults: 4 workers,
// queue size 16, non-blocking add, untimed waits with a 10s fallback
// timeout, deferred cancellation, no worker pinning.
func NewAttr() *Attr {
	return &Attr{
		threadCount: DefaultThreads,
		queueSize:   DefaultQueueSize,
		timeout:     DefaultTimeout,
	}
}

// SetThreadCount sets the number of workers, 1 through MaxThreads.
func (a *Attr) SetThreadCount(n int) error {
	if n < 1 || n > MaxThreads {
		return ErrInvalid
	}
	a.threadCount = n
	return nil
}

// ThreadCount returns the configured worker count.
func (a *Attr) ThreadCount() int { return a.threadCount }

// SetQueueSize sets the task queue capacity, at least 1.
func (a *Attr) SetQueueSize(n int) error {
	if n < 1 {
		return ErrInvalid
	}
	a.queueSize = n
	return nil
}

// QueueSize returns the configured task queue capacity.
func (a *Attr) QueueSize() int { return a.queueSize }

// SetBlockOnAdd selects whether AddWork blocks when the queue is full
// (true) or rejects with ErrFull (false, the default).
func (a *Attr) SetBlockOnAdd(block bool) {
	a.blockOnAdd = block
}

// BlockOnAdd returns the configured blocking-add policy.
func (a *Attr) BlockOnAdd() bool { return a.blockOnAdd }

// SetTimedWait selects whether blocking calls (AddWork with blocking
// enabled, Wait) are bounded by the default timeout instead of waiting
// indefinitely.
func (a *Attr) SetTimedWait(timed bool) {
	a.timedWait = timed
}

// TimedWait returns the configured timed-wait policy.
func (a *Attr) TimedWait() bool { return a.timedWait }

// SetTimeout sets the default timeout used when timed waits are
// enabled. Must be positive.
func (a *Attr) SetTimeout(d time.Duration) error {
	if d <= 0 {
		return ErrInvalid
	}
	a.timeout = d
	return nil
}

// Timeout returns the configured default timeout.
func (a *Attr) Timeout() time.Duration { return a.timeout }

// SetCancelType selects the forceful-shutdown cancellation type.
func (a *Attr) SetCancelType(t CancelType) error {
	if t != CancelDeferred && t != CancelAsynchronous {
		return ErrInvalid
	}
	a.cancelType = t
	return nil
}

// CancelType returns the configured cancellation type.
func (a *Attr) CancelType() CancelType { return a.cancelType }

// SetPinWorkers selects whether each worker locks its OS thread and
// binds it to a CPU. Pinning is best effort and a no-op on platforms
// without affinity support.
func (a *Attr) SetPinWorkers(pin bool) {
	a.pinWorkers = pin
}

// PinWorkers returns the configured worker pinning policy.
func (a *Attr) PinWorkers() bool { return a.pinWorkers }

// valid reports whether the attribute set is usable; guards against
// zero-value Attr objects that bypassed NewAttr.
func (a *Attr) valid() bool {
	return a.threadCount >= 1 && a.threadCount <= MaxThreads &&
		a.queueSize >= 1 && a.timeout > 0 &&
		(a.cancelType == CancelDeferred || a.cancelType == CancelAsynchronous)
}
