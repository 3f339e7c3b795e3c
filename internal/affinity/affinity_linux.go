// File: internal/affinity/affinity_linux.go
//go:build linux

// Author: Blackbluue
// License: Apache-2.0
//
// Linux affinity through sched_setaffinity on the calling thread.

package affinity

import "golang.org/x/sys/unix"

func pinThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	// pid 0 targets the calling thread
	return unix.SchedSetaffinity(0, &set)
}
