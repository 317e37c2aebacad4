package bench

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Report is the outcome of one run.
type Report struct {
	Operations []OperationReport

	// Transports lists every target in the order given to Run, reachable or not.
	Transports []domain.TransportKind

	// Unavailable maps each unreachable transport to the reason.
	Unavailable map[domain.TransportKind]string

	// Samples holds every measured iteration in run order.
	Samples []domain.LatencySample

	Warmup      int
	Repetitions int
	Started     time.Time
	Finished    time.Time
}

// OperationReport holds the per-transport aggregates of one operation.
type OperationReport struct {
	Name    string
	Results map[domain.TransportKind]Aggregate

	// Speedup is mean(text-based) / mean(typed-binary), valid when HasSpeedup is set.
	Speedup    float64
	HasSpeedup bool
}

// Operation returns the report of the named operation.
func (r *Report) Operation(name string) (OperationReport, bool) {
	for _, op := range r.Operations {
		if op.Name == name {
			return op, true
		}
	}
	return OperationReport{}, false
}

// Available lists the transports that took part in the run.
func (r *Report) Available() []domain.TransportKind {
	out := make([]domain.TransportKind, 0, len(r.Transports))
	for _, k := range r.Transports {
		if _, down := r.Unavailable[k]; !down {
			out = append(out, k)
		}
	}
	return out
}

var tableHeaders = []string{"Transport", "n", "ok", "failed", "mean", "min", "max", "failed mean"}

func (r *Report) rows(op OperationReport) [][]string {
	rows := make([][]string, 0, len(r.Transports))
	for _, k := range r.Transports {
		if reason, down := r.Unavailable[k]; down {
			rows = append(rows, []string{k.String(), "-", "-", "-", "UNAVAILABLE", "", "", shorten(reason)})
			continue
		}
		agg, ok := op.Results[k]
		if !ok {
			continue
		}
		latency := []string{"-", "-", "-"}
		if agg.HasLatency() {
			latency = []string{FormatDuration(agg.Mean), FormatDuration(agg.Min), FormatDuration(agg.Max)}
		}
		failedMean := "-"
		if agg.FailureCount > 0 {
			failedMean = FormatDuration(agg.FailureMean)
		}
		rows = append(rows, append([]string{
			k.String(),
			strconv.Itoa(agg.Count),
			strconv.Itoa(agg.SuccessCount),
			strconv.Itoa(agg.FailureCount),
		}, append(latency, failedMean)...))
	}
	return rows
}

func speedupLine(op OperationReport) string {
	if !op.HasSpeedup {
		return "Speedup: n/a"
	}
	return fmt.Sprintf("Speedup: %.2fx (%s vs %s)", op.Speedup, domain.TypedBinary, domain.TextBased)
}

// WriteText renders the report as plain-text tables.
func (r *Report) WriteText(w io.Writer) error {
	var b strings.Builder
	fmt.Fprintf(&b, "MCP TRANSPORT COMPARISON (%d warm-up, %d measured iterations)\n", r.Warmup, r.Repetitions)

	for _, op := range r.Operations {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			Headers(tableHeaders...).
			Rows(r.rows(op)...)
		fmt.Fprintf(&b, "\n%s\n%s\n%s\n", strings.ToUpper(op.Name), t.Render(), speedupLine(op))
	}

	r.writeUnavailable(&b, "\n", "")
	_, err := io.WriteString(w, b.String())
	return err
}

// Markdown renders the report as a Markdown document.
func (r *Report) Markdown() string {
	var b strings.Builder
	b.WriteString("# MCP Transport Comparison\n\n")
	fmt.Fprintf(&b, "%d warm-up and %d measured iterations per operation and transport.\n", r.Warmup, r.Repetitions)

	for _, op := range r.Operations {
		fmt.Fprintf(&b, "\n## %s\n\n", op.Name)
		b.WriteString("| " + strings.Join(tableHeaders, " | ") + " |\n")
		b.WriteString("|" + strings.Repeat(" --- |", len(tableHeaders)) + "\n")
		for _, row := range r.rows(op) {
			b.WriteString("| " + strings.Join(row, " | ") + " |\n")
		}
		fmt.Fprintf(&b, "\n**%s**\n", speedupLine(op))
	}

	r.writeUnavailable(&b, "\n## Unavailable\n\n", "- ")
	return b.String()
}

func (r *Report) writeUnavailable(b *strings.Builder, heading, bullet string) {
	if len(r.Unavailable) == 0 {
		return
	}
	kinds := make([]string, 0, len(r.Unavailable))
	for k := range r.Unavailable {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	if bullet == "" {
		heading += "UNAVAILABLE\n"
	}
	b.WriteString(heading)
	for _, k := range kinds {
		fmt.Fprintf(b, "%s%s: %s\n", bullet, k, r.Unavailable[domain.TransportKind(k)])
	}
}

// FormatDuration prints d in milliseconds with microsecond precision.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d)/float64(time.Millisecond))
}

func shorten(s string) string {
	const limit = 48
	if len(s) <= limit {
		return s
	}
	return s[:limit-3] + "..."
}
