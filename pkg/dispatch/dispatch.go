package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/registry"
)

// DefaultHandlerTimeout bounds a single handler invocation.
const DefaultHandlerTimeout = 30 * time.Second

// Dispatcher resolves ToolCalls against a registry and turns every outcome into a
// well-formed ToolResult. It is shared by all bindings; a binding only translates
// envelopes to and from domain types.
type Dispatcher struct {
	registry *registry.Registry
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithHandlerTimeout overrides DefaultHandlerTimeout. Zero disables the bound.
func WithHandlerTimeout(d time.Duration) Option {
	return func(s *Dispatcher) {
		s.timeout = d
	}
}

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Dispatcher) {
		s.logger = l
	}
}

// WithMetrics records every call on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Dispatcher) {
		s.metrics = m
	}
}

// New creates a Dispatcher over reg.
func New(reg *registry.Registry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		registry: reg,
		timeout:  DefaultHandlerTimeout,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ListTools returns the registered tool definitions in registration order.
func (d *Dispatcher) ListTools() []domain.ToolDefinition {
	return d.registry.List()
}

// Ping returns the liveness token without touching the registry.
func (d *Dispatcher) Ping() string {
	return domain.PingReply
}

// Metrics returns the collectors the dispatcher records on, possibly nil.
func (d *Dispatcher) Metrics() *observability.Metrics {
	return d.metrics
}

// Dispatch runs one call. It never returns a transport fault: lookup failures,
// invalid arguments, handler errors, panics and handler timeouts all become
// ToolResult{Success: false} carrying a descriptive message.
// transport labels metrics and logs only.
func (d *Dispatcher) Dispatch(ctx context.Context, transport string, call domain.ToolCall) domain.ToolResult {
	start := time.Now()

	tool, err := d.registry.Lookup(call.Name)
	if err != nil {
		d.observe(transport, call, observability.OutcomeNotFound, start, err)
		return domain.NewErrorResult(call.CallID, fmt.Sprintf("unknown tool: %s", call.Name))
	}

	if err := tool.Validate(call.Arguments); err != nil {
		d.observe(transport, call, observability.OutcomeInvalid, start, err)
		return domain.NewErrorResult(call.CallID, err.Error())
	}

	content, outcome, err := d.invoke(ctx, tool, call)
	d.observe(transport, call, outcome, start, err)
	if err != nil {
		return domain.NewErrorResult(call.CallID, errorMessage(err))
	}
	return domain.NewSuccessResult(call.CallID, content)
}

type invocation struct {
	content string
	err     error
	panic   any
}

func (d *Dispatcher) invoke(ctx context.Context, tool *registry.Tool, call domain.ToolCall) (string, string, error) {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	// Buffered so an abandoned handler can still deliver and exit.
	done := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- invocation{panic: r}
			}
		}()
		content, err := tool.Handler.Invoke(ctx, call.Arguments)
		done <- invocation{content: content, err: err}
	}()

	select {
	case inv := <-done:
		switch {
		case inv.panic != nil:
			return "", observability.OutcomePanic, &domain.HandlerError{Tool: call.Name, Cause: panicError{value: inv.panic}}
		case inv.err != nil:
			if errors.Is(inv.err, context.DeadlineExceeded) && ctx.Err() != nil {
				return "", observability.OutcomeTimeout, timeoutError(call.Name, d.timeout)
			}
			return "", observability.OutcomeFailure, &domain.HandlerError{Tool: call.Name, Cause: inv.err}
		default:
			return inv.content, observability.OutcomeSuccess, nil
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", observability.OutcomeTimeout, timeoutError(call.Name, d.timeout)
		}
		return "", observability.OutcomeFailure, &domain.HandlerError{Tool: call.Name, Cause: ctx.Err()}
	}
}

func (d *Dispatcher) observe(transport string, call domain.ToolCall, outcome string, start time.Time, err error) {
	elapsed := time.Since(start)
	d.metrics.ObserveCall(transport, call.Name, outcome, elapsed)

	if err != nil {
		d.logger.Debug("tool call failed",
			"transport", transport,
			"tool", call.Name,
			"call_id", call.CallID,
			"outcome", outcome,
			"error", err,
		)
		return
	}
	d.logger.Debug("tool call",
		"transport", transport,
		"tool", call.Name,
		"call_id", call.CallID,
		"elapsed", elapsed,
	)
}

func timeoutError(tool string, limit time.Duration) error {
	return &domain.HandlerError{Tool: tool, Cause: fmt.Errorf("%w after %s", domain.ErrTimeout, limit)}
}

// errorMessage returns the handler's own message for plain handler errors,
// and the wrapped form for panics and timeouts.
func errorMessage(err error) string {
	var he *domain.HandlerError
	if errors.As(err, &he) && !errors.Is(err, domain.ErrTimeout) && !isPanic(he) {
		return he.Cause.Error()
	}
	return err.Error()
}

func isPanic(he *domain.HandlerError) bool {
	var pe panicError
	return errors.As(he.Cause, &pe)
}

type panicError struct {
	value any
}

func (e panicError) Error() string {
	return fmt.Sprintf("panic: %v", e.value)
}
