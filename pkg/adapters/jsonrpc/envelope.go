package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/mcpbench/pkg/domain"
)

// Version is the only protocol version accepted.
const Version = "2.0"

// Method names. The MCP names are canonical; the camelCase aliases mirror the
// typed-binary method surface.
const (
	MethodListTools      = "tools/list"
	MethodCallTool       = "tools/call"
	MethodPing           = "ping"
	MethodListToolsAlias = "listTools"
	MethodCallToolAlias  = "callTool"
)

// Request represents a JSON-RPC request object.
// ID is kept raw so that responses echo it byte for byte.
type Request struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the request carries no id.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || bytes.Equal(r.ID, []byte("null"))
}

// Response represents a JSON-RPC response object
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// CallToolParams are the params of tools/call.
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
	CallID    string          `json:"callId,omitempty"`
}

// ArgumentDocument returns the opaque argument document.
// A JSON string is unwrapped; any other JSON value is passed through verbatim,
// so MCP-style object arguments are accepted too.
func (p CallToolParams) ArgumentDocument() (string, error) {
	raw := bytes.TrimSpace(p.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	if raw[0] != '"' {
		return string(raw), nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("arguments: %w", err)
	}
	return s, nil
}

// ListToolsResult is the result of tools/list.
type ListToolsResult struct {
	Tools []domain.ToolDefinition `json:"tools"`
}

// PingResult is the result of ping.
type PingResult struct {
	Pong string `json:"pong"`
}

func newCallToolParams(call domain.ToolCall) (CallToolParams, error) {
	args, err := json.Marshal(call.Arguments)
	if err != nil {
		return CallToolParams{}, err
	}
	return CallToolParams{Name: call.Name, Arguments: args, CallID: call.CallID}, nil
}
