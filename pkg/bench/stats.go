package bench

import (
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
)

// Aggregate summarizes the samples of one (operation, transport) pair.
// Mean, Min and Max cover successful samples only; FailureMean is the mean latency of
// the failed ones, kept apart so a fast failure never reads as a fast success.
type Aggregate struct {
	Count        int
	SuccessCount int
	FailureCount int
	Mean         time.Duration
	Min          time.Duration
	Max          time.Duration
	FailureMean  time.Duration
}

// HasLatency reports whether at least one sample succeeded.
func (a Aggregate) HasLatency() bool {
	return a.SuccessCount > 0
}

// Summarize aggregates samples.
func Summarize(samples []domain.LatencySample) Aggregate {
	var (
		agg       Aggregate
		okTotal   time.Duration
		failTotal time.Duration
	)
	for _, s := range samples {
		agg.Count++
		if !s.Succeeded {
			agg.FailureCount++
			failTotal += s.Elapsed
			continue
		}
		if agg.SuccessCount == 0 || s.Elapsed < agg.Min {
			agg.Min = s.Elapsed
		}
		if s.Elapsed > agg.Max {
			agg.Max = s.Elapsed
		}
		agg.SuccessCount++
		okTotal += s.Elapsed
	}
	if agg.SuccessCount > 0 {
		agg.Mean = okTotal / time.Duration(agg.SuccessCount)
	}
	if agg.FailureCount > 0 {
		agg.FailureMean = failTotal / time.Duration(agg.FailureCount)
	}
	return agg
}

// Speedup returns mean(baseline) / mean(candidate). A value above 1 means the
// candidate is faster. It is not computable unless both sides have successful samples.
func Speedup(baseline, candidate Aggregate) (float64, bool) {
	if !baseline.HasLatency() || !candidate.HasLatency() || candidate.Mean <= 0 {
		return 0, false
	}
	return float64(baseline.Mean) / float64(candidate.Mean), true
}
