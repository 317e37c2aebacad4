package tui

import (
	"bytes"
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/bench"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport() *bench.Report {
	return &bench.Report{
		Transports:  []domain.TransportKind{domain.TypedBinary, domain.TextBased},
		Unavailable: map[domain.TransportKind]string{domain.TextBased: "transport unavailable: dial refused"},
		Warmup:      3,
		Repetitions: 10,
		Operations: []bench.OperationReport{{
			Name: "echo",
			Results: map[domain.TransportKind]bench.Aggregate{
				domain.TypedBinary: {Count: 10, SuccessCount: 10, Mean: 2 * time.Millisecond, Min: time.Millisecond, Max: 3 * time.Millisecond},
			},
		}},
	}
}

func TestWriteReport(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatText))
	assert.Contains(t, buf.String(), "ECHO")
	assert.Contains(t, buf.String(), "2.000ms")
	assert.Contains(t, buf.String(), "UNAVAILABLE")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatMarkdown))
	assert.Contains(t, buf.String(), "## echo")

	buf.Reset()
	require.NoError(t, WriteReport(&buf, sampleReport(), FormatAuto))
	assert.Contains(t, buf.String(), "ECHO", "a buffer is not a terminal")

	assert.Error(t, WriteReport(&buf, sampleReport(), "html"))
}

func TestNewRenderer(t *testing.T) {
	out, err := NewRenderer()("# Results\n\n| a | b |\n| --- | --- |\n| 1 | 2 |\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Results")
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf)
	assert.Contains(t, buf.String(), "|_|")
}
