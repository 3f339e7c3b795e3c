// File: internal/affinity/affinity_stub.go
//go:build !linux

// Author: Blackbluue
// License: Apache-2.0
//
// Fallback for platforms without an affinity syscall wrapper.

package affinity

func pinThread(cpu int) error {
	return ErrNotSupported
}
