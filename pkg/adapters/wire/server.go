package wire

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/dispatch"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/aretw0/mcpbench/pkg/ports"
	"golang.org/x/sync/semaphore"
)

// TransportName labels this binding in logs and metrics.
const TransportName = "typed-binary"

// Server defaults.
const (
	DefaultMaxConnections = 1024
	DefaultMaxInFlight    = 256
	handshakeTimeout      = 5 * time.Second
)

// State is the lifecycle of a Server.
type State int

const (
	StateIdle State = iota
	StateListening
	StateServing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateServing:
		return "serving"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// MethodHandler serves one method. body aliases the request frame and is only
// valid until the handler returns. A returned error is sent as an error frame.
type MethodHandler func(ctx context.Context, body []byte) ([]byte, error)

// Server accepts typed-binary connections and serves the mounted surfaces.
//
// Each connection is read by one goroutine. Request frames are handled
// concurrently (bounded per connection) and responses are written in completion
// order, so callers may pipeline. Ping is answered inline by the reader so it
// stays responsive while handlers are busy.
type Server struct {
	dispatcher  *dispatch.Dispatcher
	github      ports.GitHubService
	methods     map[Method]MethodHandler
	logger      *slog.Logger
	metrics     *observability.Metrics
	maxConns    int64
	maxInFlight int64
	connSem     *semaphore.Weighted

	mu       sync.Mutex
	state    State
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

// Option configures a Server.
type Option func(*Server)

// WithDispatcher mounts the generic tool surface (listTools, callTool, ping).
func WithDispatcher(d *dispatch.Dispatcher) Option {
	return func(s *Server) {
		s.dispatcher = d
	}
}

// WithGitHubService mounts the GitHub-flavoured surface (createIssue, listIssues,
// getIssue). Its ping is used only when no generic surface is mounted.
func WithGitHubService(svc ports.GitHubService) Option {
	return func(s *Server) {
		s.github = svc
	}
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics records connections and frames on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithMaxConnections bounds concurrently served connections. Extra connections are closed.
func WithMaxConnections(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxConns = int64(n)
		}
	}
}

// WithMaxInFlight bounds concurrently executing requests per connection.
// The reader stops consuming frames while the bound is reached.
func WithMaxInFlight(n int) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxInFlight = int64(n)
		}
	}
}

// NewServer creates a server. At least one surface should be mounted.
func NewServer(opts ...Option) *Server {
	s := &Server{
		logger:      logging.NewNop(),
		maxConns:    DefaultMaxConnections,
		maxInFlight: DefaultMaxInFlight,
		methods:     make(map[Method]MethodHandler),
		conns:       make(map[net.Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil && s.dispatcher != nil {
		s.metrics = s.dispatcher.Metrics()
	}
	s.connSem = semaphore.NewWeighted(s.maxConns)

	if s.github != nil {
		s.mountGitHub(s.github)
	}
	if s.dispatcher != nil {
		s.mountTools(s.dispatcher)
	}
	return s
}

// Handle mounts h for method m, replacing any previous handler.
// It must be called before serving.
func (s *Server) Handle(m Method, h MethodHandler) {
	s.methods[m] = h
}

func (s *Server) mountTools(d *dispatch.Dispatcher) {
	s.Handle(MethodListTools, func(ctx context.Context, _ []byte) ([]byte, error) {
		return AppendToolList(nil, d.ListTools()), nil
	})
	s.Handle(MethodCallTool, func(ctx context.Context, body []byte) ([]byte, error) {
		view, err := DecodeToolCall(body)
		if err != nil {
			return nil, err
		}
		res := d.Dispatch(ctx, TransportName, view.ToolCall())
		out := AppendToolResult(nil, res)
		if len(out) > maxBodySize {
			s.logger.Warn("tool result too large", "tool", string(view.Name), "call_id", res.CallID, "bytes", len(out))
			out = AppendToolResult(nil, domain.NewErrorResult(res.CallID, domain.ErrResultTooLarge.Error()))
		}
		return out, nil
	})
	s.Handle(MethodPing, func(ctx context.Context, _ []byte) ([]byte, error) {
		return AppendPingReply(nil, d.Ping()), nil
	})
}

// State returns the server lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateListening && len(s.conns) > 0 {
		return StateServing
	}
	return s.state
}

// Addr returns the listener address, or nil before Serve.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// ListenAndServe listens on addr and serves until ctx is cancelled or Close is called.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		ln.Close()
		return net.ErrClosed
	}
	s.listener = ln
	s.state = StateListening
	s.mu.Unlock()

	s.logger.Info("typed-binary server listening", "address", ln.Addr().String())

	stop := context.AfterFunc(ctx, func() {
		s.Close()
	})
	defer stop()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if s.State() == StateClosed || errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}

		if !s.connSem.TryAcquire(1) {
			s.logger.Warn("connection limit reached, rejecting", "remote", conn.RemoteAddr().String(), "limit", s.maxConns)
			conn.Close()
			continue
		}

		if !s.track(conn, true) {
			s.connSem.Release(1)
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.connSem.Release(1)
			defer s.track(conn, false)
			s.serveConn(ctx, conn)
		}()
	}
}

// Close stops accepting, closes every connection and waits for readers to exit.
func (s *Server) Close() error {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return nil
	}
	s.state = StateClosed
	ln := s.listener
	for c := range s.conns {
		c.Close()
	}
	s.mu.Unlock()

	if ln != nil {
		return ln.Close()
	}
	return nil
}

// track adds or removes conn from the served set. A conn accepted after
// Close is closed instead and track reports false.
func (s *Server) track(conn net.Conn, add bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		if s.state == StateClosed {
			conn.Close()
			return false
		}
		s.conns[conn] = struct{}{}
		s.metrics.ConnOpened(TransportName)
		return true
	}
	if _, ok := s.conns[conn]; ok {
		delete(s.conns, conn)
		s.metrics.ConnClosed(TransportName)
	}
	return true
}

// serverConn is the per-connection state.
type serverConn struct {
	conn    net.Conn
	writeMu sync.Mutex
	w       *bufio.Writer
	sem     *semaphore.Weighted
}

func (c *serverConn) send(f Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return writeFrame(c.w, f)
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	remote := conn.RemoteAddr().String()
	log := s.logger.With("remote", remote)

	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	if err := readPreamble(conn); err != nil {
		log.Warn("rejecting connection", "error", err)
		return
	}
	if _, err := conn.Write(preamble()); err != nil {
		log.Warn("handshake write failed", "error", err)
		return
	}
	_ = conn.SetDeadline(time.Time{})

	log.Debug("connection established")

	connCtx, cancel := context.WithCancel(ctx)
	var inflight sync.WaitGroup
	defer func() {
		cancel()
		inflight.Wait()
	}()

	sc := &serverConn{
		conn: conn,
		w:    bufio.NewWriter(conn),
		sem:  semaphore.NewWeighted(s.maxInFlight),
	}
	r := bufio.NewReader(conn)

	for {
		buf := getBuf()
		f, err := readFrame(r, buf)
		if err != nil {
			putBuf(buf)
			if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
				log.Warn("connection read failed", "error", err)
			}
			log.Debug("connection closed")
			return
		}
		s.metrics.Frame(TransportName, "in")

		if f.Kind != KindRequest {
			putBuf(buf)
			log.Warn("unexpected frame kind", "kind", f.Kind, "stream", f.StreamID)
			continue
		}

		h, ok := s.methods[f.Method]
		if !ok {
			putBuf(buf)
			s.reply(sc, log, f, nil, fmt.Errorf("unknown method %s", f.Method))
			continue
		}

		if f.Method == MethodPing {
			body, herr := h(connCtx, f.Body)
			putBuf(buf)
			s.reply(sc, log, f, body, herr)
			continue
		}

		if err := sc.sem.Acquire(connCtx, 1); err != nil {
			putBuf(buf)
			return
		}
		inflight.Add(1)
		go func() {
			defer inflight.Done()
			defer sc.sem.Release(1)
			defer putBuf(buf)
			body, herr := h(connCtx, f.Body)
			s.reply(sc, log, f, body, herr)
		}()
	}
}

func (s *Server) reply(sc *serverConn, log *slog.Logger, req Frame, body []byte, herr error) {
	resp := Frame{StreamID: req.StreamID, Method: req.Method, Kind: KindResponse, Body: body}
	if herr != nil {
		resp = Frame{StreamID: req.StreamID, Method: req.Method, Kind: KindError, Error: herr.Error()}
	}
	err := sc.send(resp)
	if errors.Is(err, ErrFrameTooLarge) {
		log.Warn("response too large", "stream", req.StreamID, "method", req.Method, "error", err)
		err = sc.send(Frame{StreamID: req.StreamID, Method: req.Method, Kind: KindError, Error: domain.ErrResultTooLarge.Error()})
	}
	if err != nil {
		log.Debug("response write failed", "stream", req.StreamID, "error", err)
		sc.conn.Close()
		return
	}
	s.metrics.Frame(TransportName, "out")
}
