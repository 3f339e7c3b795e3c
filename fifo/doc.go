// File: fifo/doc.go
// Author: Blackbluue
// License: Apache-2.0

// Package fifo implements a plain bounded FIFO queue with an optional
// per-item destructor.
//
// The queue is not safe for concurrent use. Callers that share a queue
// across goroutines must serialize access externally; the cqueue package
// does exactly that with a single mutex.
package fifo
