// File: pool/stats.go
// Author: Blackbluue
// License: Apache-2.0

package pool

// Stats is a point-in-time snapshot of pool activity.
type Stats struct {
	Workers   int   // configured worker count
	Queued    int   // tasks waiting in the queue
	Running   int64 // tasks currently executing
	Submitted int64 // tasks accepted since creation
	Completed int64 // task bodies finished since creation
}
