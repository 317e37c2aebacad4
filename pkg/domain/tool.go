package domain

// ToolDefinition describes a tool exposed by a server.
// It is immutable once registered.
type ToolDefinition struct {
	Name        string `json:"name" yaml:"name" mapstructure:"name"`
	Description string `json:"description" yaml:"description" mapstructure:"description"`
	InputSchema string `json:"inputSchema,omitempty" yaml:"input_schema,omitempty" mapstructure:"input_schema"` // JSON Schema document
}

// ToolCall is a request to invoke a named tool.
type ToolCall struct {
	Name      string `json:"name" mapstructure:"name"`
	Arguments string `json:"arguments" mapstructure:"arguments"` // Serialized argument document, opaque to transports
	CallID    string `json:"callId" mapstructure:"call_id"`      // Unique per in-flight call on a connection
}

// ToolResult is the outcome of a ToolCall.
// On success Content carries the payload, on failure a human-readable message.
type ToolResult struct {
	CallID  string `json:"callId"`
	Success bool   `json:"success"`
	Content string `json:"content"`
}

// NewSuccessResult builds a successful result for the given call.
func NewSuccessResult(callID, content string) ToolResult {
	return ToolResult{CallID: callID, Success: true, Content: content}
}

// NewErrorResult builds a failed result for the given call.
func NewErrorResult(callID, message string) ToolResult {
	return ToolResult{CallID: callID, Success: false, Content: message}
}

// PingReply is the constant payload answered by servers exposing the generic tool surface.
const PingReply = "pong"
