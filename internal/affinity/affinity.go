// File: internal/affinity/affinity.go
// Author: Blackbluue
// License: Apache-2.0
//
// CPU affinity for pool workers. The caller is expected to have locked
// its OS thread; Pin then binds that thread to one logical CPU.

package affinity

import (
	"errors"
	"runtime"
)

// ErrNotSupported indicates CPU affinity is not available on this
// platform.
var ErrNotSupported = errors.New("affinity: not supported on this platform")

// Pin binds the calling OS thread to the logical CPU slot mod NumCPU.
// Call runtime.LockOSThread first or the binding outlives the caller's
// goroutine in unpredictable ways.
func Pin(slot int) error {
	n := runtime.NumCPU()
	if n <= 0 {
		return ErrNotSupported
	}
	if slot < 0 {
		slot = -slot
	}
	return pinThread(slot % n)
}
