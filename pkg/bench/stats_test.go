package bench

import (
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/stretchr/testify/assert"
)

func samples(ok bool, ms ...int) []domain.LatencySample {
	out := make([]domain.LatencySample, 0, len(ms))
	for i, v := range ms {
		out = append(out, domain.LatencySample{
			Operation: "echo",
			Iteration: uint32(i),
			Elapsed:   time.Duration(v) * time.Millisecond,
			Succeeded: ok,
		})
	}
	return out
}

func TestSummarize(t *testing.T) {
	agg := Summarize(samples(true, 10, 20, 30))

	assert.Equal(t, 3, agg.Count)
	assert.Equal(t, 3, agg.SuccessCount)
	assert.Equal(t, 0, agg.FailureCount)
	assert.Equal(t, 20*time.Millisecond, agg.Mean)
	assert.Equal(t, 10*time.Millisecond, agg.Min)
	assert.Equal(t, 30*time.Millisecond, agg.Max)
}

func TestSummarize_FailuresKeptApart(t *testing.T) {
	all := append(samples(true, 30, 10), samples(false, 1, 3)...)
	agg := Summarize(all)

	assert.Equal(t, 4, agg.Count)
	assert.Equal(t, 2, agg.SuccessCount)
	assert.Equal(t, 2, agg.FailureCount)
	assert.Equal(t, 20*time.Millisecond, agg.Mean)
	assert.Equal(t, 10*time.Millisecond, agg.Min, "fast failures must not lower the minimum")
	assert.Equal(t, 2*time.Millisecond, agg.FailureMean)
}

func TestSummarize_Empty(t *testing.T) {
	agg := Summarize(nil)
	assert.Zero(t, agg.Count)
	assert.False(t, agg.HasLatency())

	onlyFailures := Summarize(samples(false, 5))
	assert.False(t, onlyFailures.HasLatency())
	assert.Zero(t, onlyFailures.Mean)
}

func TestSpeedup(t *testing.T) {
	text := Summarize(samples(true, 10, 20, 30))
	binary := Summarize(samples(true, 4, 5, 6))

	s, ok := Speedup(text, binary)
	assert.True(t, ok)
	assert.InDelta(t, 4.0, s, 1e-9)

	_, ok = Speedup(text, Summarize(samples(false, 1)))
	assert.False(t, ok)
	_, ok = Speedup(Aggregate{}, binary)
	assert.False(t, ok)
}
