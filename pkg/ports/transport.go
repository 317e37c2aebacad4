package ports

import (
	"context"

	"github.com/aretw0/mcpbench/pkg/domain"
	"github.com/google/uuid"
)

// Transport is the client side of a binding.
// Every method blocks until the matching response arrives, the context expires
// (domain.ErrTimeout) or the connection fails (*domain.TransportError).
type Transport interface {
	// ListTools returns the server's tool definitions in registration order.
	ListTools(ctx context.Context) ([]domain.ToolDefinition, error)

	// CallTool invokes a tool. Handler failures are reported in the result,
	// not as an error.
	CallTool(ctx context.Context, call domain.ToolCall) (domain.ToolResult, error)

	// Ping round-trips without a tool lookup and returns a non-empty liveness token.
	Ping(ctx context.Context) (string, error)

	// Close releases the connection. In-flight calls fail with a TransportError.
	Close() error
}

// Call invokes a tool by name on t, generating a fresh callId.
func Call(ctx context.Context, t Transport, name, arguments string) (domain.ToolResult, error) {
	return t.CallTool(ctx, domain.ToolCall{
		Name:      name,
		Arguments: arguments,
		CallID:    NewCallID(),
	})
}

// NewCallID returns a random correlation id for a ToolCall.
func NewCallID() string {
	return uuid.NewString()
}
