package bench

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
)

// Defaults for the run policy.
const (
	DefaultWarmup       = 3
	DefaultRepetitions  = 10
	DefaultProbeTimeout = 5 * time.Second
)

// Target is one transport under test.
type Target struct {
	Kind domain.TransportKind
	Dial func(ctx context.Context) (ports.Transport, error)
}

// Engine runs benchmark suites.
type Engine struct {
	warmup       int
	repetitions  int
	probeTimeout time.Duration
	logger       *slog.Logger
	now          func() time.Time
	progress     func(op string, kind domain.TransportKind)
}

// Option configures an Engine.
type Option func(*Engine)

// WithWarmup sets the number of untimed iterations per (operation, transport).
// Values below one are raised to one: the first call on a fresh connection is never measured.
func WithWarmup(n int) Option {
	return func(e *Engine) {
		e.warmup = max(n, 1)
	}
}

// WithRepetitions sets the number of measured iterations.
func WithRepetitions(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.repetitions = n
		}
	}
}

// WithProbeTimeout bounds the initial ping that checks a transport is reachable.
func WithProbeTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.probeTimeout = d
		}
	}
}

// WithLogger sets the logger used for run diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithClock replaces time.Now for latency measurement.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithProgress registers a callback invoked before each (operation, transport) block.
func WithProgress(fn func(op string, kind domain.TransportKind)) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// NewEngine creates an Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		warmup:       DefaultWarmup,
		repetitions:  DefaultRepetitions,
		probeTimeout: DefaultProbeTimeout,
		logger:       logging.NewNop(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type session struct {
	kind domain.TransportKind
	conn ports.Transport
	dead error
}

// persistent is implemented by transports holding one long-lived connection.
type persistent interface {
	Done() <-chan struct{}
}

var errConnectionClosed = errors.New("connection closed")

// alive reports whether the session can still carry calls. A persistent
// connection that has gone away marks the session dead before the next call.
func (s *session) alive() bool {
	if s.dead != nil {
		return false
	}
	if p, ok := s.conn.(persistent); ok {
		select {
		case <-p.Done():
			s.dead = domain.NewTransportError("connection", errConnectionClosed)
			return false
		default:
		}
	}
	return true
}

// Run benchmarks suite against every target.
//
// Unreachable targets are recorded in Report.Unavailable and skipped. When no target is
// reachable the partial report is returned together with an error wrapping
// domain.ErrBenchmarkUnavailable. A cancelled ctx aborts the run.
func (e *Engine) Run(ctx context.Context, suite []Operation, targets []Target) (*Report, error) {
	if len(suite) == 0 {
		return nil, errors.New("empty operation suite")
	}
	if len(targets) == 0 {
		return nil, errors.New("no transports to benchmark")
	}

	report := &Report{
		Transports:  make([]domain.TransportKind, 0, len(targets)),
		Unavailable: make(map[domain.TransportKind]string),
		Warmup:      e.warmup,
		Repetitions: e.repetitions,
		Started:     time.Now(),
	}

	sessions := make([]*session, 0, len(targets))
	defer func() {
		for _, s := range sessions {
			if err := s.conn.Close(); err != nil {
				e.logger.Debug("Closing transport failed", "transport", s.kind, "err", err)
			}
		}
	}()

	for _, t := range targets {
		report.Transports = append(report.Transports, t.Kind)
		conn, err := e.connect(ctx, t)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("Transport unavailable", "transport", t.Kind, "err", err)
			report.Unavailable[t.Kind] = err.Error()
			continue
		}
		sessions = append(sessions, &session{kind: t.Kind, conn: conn})
	}

	for _, op := range suite {
		opReport := OperationReport{
			Name:    op.Name,
			Results: make(map[domain.TransportKind]Aggregate, len(sessions)),
		}
		for _, s := range sessions {
			if e.progress != nil {
				e.progress(op.Name, s.kind)
			}
			samples, err := e.measure(ctx, op, s)
			if err != nil {
				return nil, err
			}
			report.Samples = append(report.Samples, samples...)
			opReport.Results[s.kind] = Summarize(samples)
		}
		text, okText := opReport.Results[domain.TextBased]
		binary, okBinary := opReport.Results[domain.TypedBinary]
		if okText && okBinary {
			opReport.Speedup, opReport.HasSpeedup = Speedup(text, binary)
		}
		report.Operations = append(report.Operations, opReport)
	}

	report.Finished = time.Now()
	if len(sessions) == 0 {
		return report, fmt.Errorf("no transport reachable: %w", domain.ErrBenchmarkUnavailable)
	}
	return report, nil
}

// connect dials t and confirms it answers a ping.
func (e *Engine) connect(ctx context.Context, t Target) (ports.Transport, error) {
	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	conn, err := t.Dial(probeCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: dial: %v", domain.ErrBenchmarkUnavailable, t.Kind, err)
	}
	if _, err := conn.Ping(probeCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: %s: ping: %v", domain.ErrBenchmarkUnavailable, t.Kind, err)
	}
	return conn, nil
}

// measure runs the warm-up and measured iterations of op on one transport, sequentially.
func (e *Engine) measure(ctx context.Context, op Operation, s *session) ([]domain.LatencySample, error) {
	for i := 0; i < e.warmup && s.alive(); i++ {
		if _, err := op.Run(ctx, s.conn, i); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.observeError(s, op.Name, err)
		}
	}

	samples := make([]domain.LatencySample, 0, e.repetitions)
	for i := 0; i < e.repetitions; i++ {
		sample := domain.LatencySample{
			Operation: op.Name,
			Transport: s.kind,
			Iteration: uint32(i),
		}
		if !s.alive() {
			sample.Err = s.dead.Error()
			samples = append(samples, sample)
			continue
		}

		start := e.now()
		result, err := op.Run(ctx, s.conn, e.warmup+i)
		sample.Elapsed = e.now().Sub(start)

		switch {
		case err != nil:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			sample.Err = err.Error()
			e.observeError(s, op.Name, err)
		case !result.Success:
			sample.Err = result.Content
		default:
			sample.Succeeded = true
		}
		samples = append(samples, sample)
	}
	return samples, nil
}

// observeError marks the session dead on a transport failure. Timeouts leave the
// connection usable.
func (e *Engine) observeError(s *session, op string, err error) {
	if domain.IsTimeout(err) {
		e.logger.Debug("Call timed out", "transport", s.kind, "operation", op, "err", err)
		return
	}
	if domain.IsTransport(err) {
		e.logger.Warn("Transport failed, remaining samples fail fast", "transport", s.kind, "operation", op, "err", err)
		s.dead = err
	}
}
