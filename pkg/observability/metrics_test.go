package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveCall(t *testing.T) {
	m := NewMetrics()
	m.ObserveCall("typed-binary", "echo", OutcomeSuccess, time.Millisecond)
	m.ObserveCall("typed-binary", "echo", OutcomeSuccess, 2*time.Millisecond)
	m.ObserveCall("text-based", "echo", OutcomeFailure, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CallCount("typed-binary", "echo", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CallCount("text-based", "echo", OutcomeFailure)))
}

func TestMetrics_Connections(t *testing.T) {
	m := NewMetrics()
	m.ConnOpened("typed-binary")
	m.ConnOpened("typed-binary")
	m.ConnClosed("typed-binary")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ActiveConnections("typed-binary")))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveCall("x", "y", OutcomeSuccess, time.Second)
		m.ConnOpened("x")
		m.ConnClosed("x")
		m.Frame("x", "in")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.Frame("typed-binary", "in")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `mcpbench_frames_total{direction="in",transport="typed-binary"} 1`)
}
