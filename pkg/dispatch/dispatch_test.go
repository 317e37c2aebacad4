package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/registry"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New()
	require.NoError(t, reg.RegisterFunc("echo", "", "", func(_ context.Context, args string) (string, error) {
		return args, nil
	}))
	require.NoError(t, reg.RegisterFunc("fail", "", "", func(_ context.Context, args string) (string, error) {
		return "", errors.New("rejected input " + args)
	}))
	require.NoError(t, reg.RegisterFunc("panic", "", "", func(_ context.Context, _ string) (string, error) {
		panic("kaboom")
	}))
	require.NoError(t, reg.RegisterFunc("hang", "", "", func(ctx context.Context, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}))
	require.NoError(t, reg.RegisterFunc("typed", "",
		`{"type":"object","properties":{"n":{"type":"integer"}},"required":["n"]}`,
		func(_ context.Context, args string) (string, error) {
			return args, nil
		}))
	reg.Seal()
	return reg
}

func TestDispatch(t *testing.T) {
	metrics := observability.NewMetrics()
	d := New(newRegistry(t), WithHandlerTimeout(50*time.Millisecond), WithMetrics(metrics))
	ctx := context.Background()

	tests := []struct {
		name        string
		call        domain.ToolCall
		wantSuccess bool
		wantContent string
		outcome     string
	}{
		{
			name:        "echo",
			call:        domain.ToolCall{Name: "echo", Arguments: "hello", CallID: "c1"},
			wantSuccess: true,
			wantContent: "hello",
			outcome:     observability.OutcomeSuccess,
		},
		{
			name:        "unknown tool",
			call:        domain.ToolCall{Name: "does_not_exist", Arguments: "{}", CallID: "c2"},
			wantContent: "unknown tool: does_not_exist",
			outcome:     observability.OutcomeNotFound,
		},
		{
			name:        "handler error",
			call:        domain.ToolCall{Name: "fail", Arguments: "X", CallID: "c3"},
			wantContent: "rejected input X",
			outcome:     observability.OutcomeFailure,
		},
		{
			name:        "panic",
			call:        domain.ToolCall{Name: "panic", CallID: "c4"},
			wantContent: "tool panic failed: panic: kaboom",
			outcome:     observability.OutcomePanic,
		},
		{
			name:    "timeout",
			call:    domain.ToolCall{Name: "hang", CallID: "c5"},
			outcome: observability.OutcomeTimeout,
		},
		{
			name:    "invalid arguments",
			call:    domain.ToolCall{Name: "typed", Arguments: `{"n":"x"}`, CallID: "c6"},
			outcome: observability.OutcomeInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Dispatch(ctx, "test", tt.call)
			assert.Equal(t, tt.call.CallID, res.CallID)
			assert.Equal(t, tt.wantSuccess, res.Success)
			assert.NotEmpty(t, res.Content)
			if tt.wantContent != "" {
				assert.Equal(t, tt.wantContent, res.Content)
			}
			assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CallCount("test", tt.call.Name, tt.outcome)))
		})
	}
}

func TestDispatch_TimeoutMessage(t *testing.T) {
	d := New(newRegistry(t), WithHandlerTimeout(10*time.Millisecond))
	res := d.Dispatch(context.Background(), "test", domain.ToolCall{Name: "hang", CallID: "x"})
	assert.False(t, res.Success)
	assert.Contains(t, res.Content, "call timed out after 10ms")
}

func TestDispatcher_ListAndPing(t *testing.T) {
	d := New(newRegistry(t))
	assert.Equal(t, "pong", d.Ping())

	names := []string{}
	for _, def := range d.ListTools() {
		names = append(names, def.Name)
	}
	assert.Equal(t, []string{"echo", "fail", "panic", "hang", "typed"}, names)
}
