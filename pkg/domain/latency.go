package domain

import "time"

// LatencySample is one measured benchmark iteration.
// Samples are immutable and only kept in memory for the duration of a run.
type LatencySample struct {
	Operation string
	Transport TransportKind
	Elapsed   time.Duration
	Iteration uint32
	Succeeded bool
	Err       string // Failure message for unsuccessful samples
}
