package jsonrpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/dispatch"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/observability"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TransportName labels this binding in logs and metrics.
const TransportName = "text-based"

// MaxRequestBytes bounds a request body.
const MaxRequestBytes = 16 << 20

// MaxResponseBytes bounds a response body read by the client.
const MaxResponseBytes = 16 << 20

// maxResultBytes leaves room for the envelope around an encoded tool result.
const maxResultBytes = MaxResponseBytes - 1024

const shutdownTimeout = 5 * time.Second

// Server exposes a dispatcher as JSON-RPC 2.0 over HTTP.
type Server struct {
	dispatcher *dispatch.Dispatcher
	logger     *slog.Logger
	metrics    *observability.Metrics
	name       string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithMetrics exposes m on GET /metrics. Defaults to the dispatcher's collectors.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithName sets the server name reported by GET /health.
func WithName(name string) Option {
	return func(s *Server) {
		s.name = name
	}
}

// NewServer creates a server over d.
func NewServer(d *dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     logging.NewNop(),
		metrics:    d.Metrics(),
		name:       "mcpbench",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routes:
//
//	POST /, POST /rpc  JSON-RPC endpoint
//	GET  /health       liveness
//	GET  /metrics      Prometheus collectors (when configured)
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)

	r.Post("/", s.handleRPC)
	r.Post("/rpc", s.handleRPC)
	r.Get("/health", s.handleHealth)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	httpServer := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("text-based server listening", "address", ln.Addr().String())
		serverErrors <- httpServer.Serve(ln)
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			httpServer.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		s.logger.Info("text-based server stopped")
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "healthy",
		"server": s.name,
		"tools":  len(s.dispatcher.ListTools()),
	})
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	s.metrics.Frame(TransportName, "in")

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		s.logger.Warn("failed to read request", "error", err)
		s.writeResponse(w, Response{Version: Version, ID: nullID, Error: NewError(ErrParse, err.Error())})
		return
	}

	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		s.logger.Warn("failed to decode request", "error", err)
		s.writeResponse(w, Response{Version: Version, ID: nullID, Error: NewError(ErrParse, err.Error())})
		return
	}

	resp := s.serve(r.Context(), req)
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	s.writeResponse(w, resp)
}

var nullID = json.RawMessage("null")

// serve routes one request to the dispatcher.
func (s *Server) serve(ctx context.Context, req Request) Response {
	resp := Response{Version: Version, ID: req.ID}
	if req.IsNotification() {
		resp.ID = nullID
	}

	if req.Version != Version || req.Method == "" {
		resp.Error = NewError(ErrInvalidRequest, "jsonrpc must be \"2.0\" and method is required")
		return resp
	}

	var (
		result any
		rpcErr *Error
	)
	switch req.Method {
	case MethodPing:
		result = PingResult{Pong: s.dispatcher.Ping()}
	case MethodListTools, MethodListToolsAlias:
		result = ListToolsResult{Tools: s.dispatcher.ListTools()}
	case MethodCallTool, MethodCallToolAlias:
		result, rpcErr = s.callTool(ctx, req.Params)
	default:
		rpcErr = NewError(ErrMethodNotFound, req.Method)
	}

	if rpcErr != nil {
		resp.Error = rpcErr
		return resp
	}
	raw, err := json.Marshal(result)
	if err != nil {
		resp.Error = NewError(ErrInternal, err.Error())
		return resp
	}
	resp.Result = raw
	return resp
}

func (s *Server) callTool(ctx context.Context, params json.RawMessage) (any, *Error) {
	var p CallToolParams
	if err := json.Unmarshal(params, &p); err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}
	if p.Name == "" {
		return nil, NewError(ErrInvalidParams, "name is required")
	}
	args, err := p.ArgumentDocument()
	if err != nil {
		return nil, NewError(ErrInvalidParams, err.Error())
	}

	res := s.dispatcher.Dispatch(ctx, TransportName, domain.ToolCall{
		Name:      p.Name,
		Arguments: args,
		CallID:    p.CallID,
	})
	if raw, err := json.Marshal(res); err == nil && len(raw) > maxResultBytes {
		s.logger.Warn("tool result too large", "tool", p.Name, "call_id", res.CallID, "bytes", len(raw))
		res = domain.NewErrorResult(res.CallID, domain.ErrResultTooLarge.Error())
	}
	return res, nil
}

func (s *Server) writeResponse(w http.ResponseWriter, resp Response) {
	writeJSON(w, http.StatusOK, resp)
	s.metrics.Frame(TransportName, "out")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"elapsed", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
