package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Call outcomes recorded by ObserveCall.
const (
	OutcomeSuccess  = "success"
	OutcomeFailure  = "failure"
	OutcomeNotFound = "not_found"
	OutcomeInvalid  = "invalid_arguments"
	OutcomeTimeout  = "timeout"
	OutcomePanic    = "panic"
)

// Metrics groups the harness collectors.
type Metrics struct {
	registry     *prometheus.Registry
	toolCalls    *prometheus.CounterVec
	toolDuration *prometheus.HistogramVec
	connections  *prometheus.GaugeVec
	frames       *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		toolCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpbench_tool_calls_total",
				Help: "Total number of dispatched tool calls",
			},
			[]string{"transport", "tool", "outcome"},
		),
		toolDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mcpbench_tool_call_duration_seconds",
				Help:    "Duration of tool handler executions",
				Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
			},
			[]string{"transport", "tool"},
		),
		connections: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mcpbench_connections_active",
				Help: "Number of open client connections",
			},
			[]string{"transport"},
		),
		frames: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mcpbench_frames_total",
				Help: "Total number of envelopes read or written",
			},
			[]string{"transport", "direction"},
		),
	}
	m.registry.MustRegister(m.toolCalls, m.toolDuration, m.connections, m.frames)
	return m
}

// ObserveCall records one dispatched call.
func (m *Metrics) ObserveCall(transport, tool, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.toolCalls.WithLabelValues(transport, tool, outcome).Inc()
	m.toolDuration.WithLabelValues(transport, tool).Observe(elapsed.Seconds())
}

// ConnOpened increments the active connection gauge.
func (m *Metrics) ConnOpened(transport string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(transport).Inc()
}

// ConnClosed decrements the active connection gauge.
func (m *Metrics) ConnClosed(transport string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(transport).Dec()
}

// Frame counts one envelope; direction is "in" or "out".
func (m *Metrics) Frame(transport, direction string) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(transport, direction).Inc()
}

// Registry exposes the underlying registry, e.g. for testutil assertions.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the collectors in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// CallCount returns the current value of the call counter for the given labels.
func (m *Metrics) CallCount(transport, tool, outcome string) prometheus.Counter {
	return m.toolCalls.WithLabelValues(transport, tool, outcome)
}

// ActiveConnections returns the gauge for the given transport.
func (m *Metrics) ActiveConnections(transport string) prometheus.Gauge {
	return m.connections.WithLabelValues(transport)
}
