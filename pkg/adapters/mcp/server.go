package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/mcpbench"
	"github.com/aretw0/mcpbench/internal/logging"
	"github.com/aretw0/mcpbench/pkg/dispatch"
	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/aretw0/mcpbench/pkg/ports"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TransportName labels calls arriving through the bridge in logs and metrics.
const TransportName = "mcp"

const emptyObjectSchema = `{"type":"object"}`

// Server exposes the registry's tools to real MCP hosts.
type Server struct {
	dispatcher *dispatch.Dispatcher
	mcpServer  *server.MCPServer
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used by the bridge.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// NewServer registers every tool known to d as an MCP tool.
func NewServer(d *dispatch.Dispatcher, opts ...Option) *Server {
	s := &Server{
		dispatcher: d,
		logger:     logging.NewNop(),
		mcpServer: server.NewMCPServer("mcpbench", strings.TrimSpace(mcpbench.Version),
			server.WithToolCapabilities(false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	for _, def := range s.dispatcher.ListTools() {
		schema := def.InputSchema
		if strings.TrimSpace(schema) == "" {
			schema = emptyObjectSchema
		}
		tool := mcp.NewToolWithRawSchema(def.Name, def.Description, json.RawMessage(schema))
		s.mcpServer.AddTool(tool, s.handleCall(def.Name))
	}
}

// handleCall forwards an MCP tool call to the dispatcher. Failed results are
// returned as tool errors, so the host sees them as content rather than a
// protocol failure.
func (s *Server) handleCall(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := request.GetArguments()
		if args == nil {
			args = map[string]any{}
		}
		doc, err := json.Marshal(args)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid arguments: %v", err)), nil
		}

		result := s.dispatcher.Dispatch(ctx, TransportName, domain.ToolCall{
			Name:      name,
			Arguments: string(doc),
			CallID:    ports.NewCallID(),
		})
		if !result.Success {
			s.logger.Debug("MCP tool call failed", "tool", name, "error", result.Content)
			return mcp.NewToolResultError(result.Content), nil
		}
		return mcp.NewToolResultText(result.Content), nil
	}
}

// ServeStdio serves the bridge on Stdin/Stdout until the host disconnects.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the bridge over SSE on addr until ctx is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr string) error {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid sse address %q: %w", addr, err)
	}
	if host == "" || host == "0.0.0.0" {
		host = "localhost"
	}
	baseURL := fmt.Sprintf("http://%s", net.JoinHostPort(host, port))

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP bridge listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.logger.Info("Shutting down MCP bridge")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
