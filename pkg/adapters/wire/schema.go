package wire

import (
	"fmt"

	"github.com/aretw0/mcpbench/pkg/domain"
	"google.golang.org/protobuf/encoding/protowire"
)

// SchemaVersion is carried in the connection preamble. Peers with a different
// version are rejected during the handshake.
const SchemaVersion byte = 1

// Method identifies a capability on the server surface.
type Method uint64

const (
	MethodListTools   Method = 1
	MethodCallTool    Method = 2
	MethodPing        Method = 3
	MethodCreateIssue Method = 10
	MethodListIssues  Method = 11
	MethodGetIssue    Method = 12
)

func (m Method) String() string {
	switch m {
	case MethodListTools:
		return "listTools"
	case MethodCallTool:
		return "callTool"
	case MethodPing:
		return "ping"
	case MethodCreateIssue:
		return "createIssue"
	case MethodListIssues:
		return "listIssues"
	case MethodGetIssue:
		return "getIssue"
	default:
		return fmt.Sprintf("method(%d)", uint64(m))
	}
}

// Field numbers. Each message shape has its own numbering space.
const (
	// ToolDefinition
	defName        protowire.Number = 1
	defDescription protowire.Number = 2
	defInputSchema protowire.Number = 3

	// ToolCall
	callName      protowire.Number = 1
	callArguments protowire.Number = 2
	callID        protowire.Number = 3

	// ToolResult
	resultCallID  protowire.Number = 1
	resultSuccess protowire.Number = 2
	resultContent protowire.Number = 3

	// ToolList, IssueList
	listItem protowire.Number = 1

	// PingReply
	pingToken protowire.Number = 1

	// CreateIssueRequest
	createTitle protowire.Number = 1
	createBody  protowire.Number = 2

	// ListIssuesRequest
	listState protowire.Number = 1
	listLimit protowire.Number = 2

	// GetIssueRequest
	getNumber protowire.Number = 1

	// GitHubIssue
	issueNumber    protowire.Number = 1
	issueTitle     protowire.Number = 2
	issueBody      protowire.Number = 3
	issueState     protowire.Number = 4
	issueURL       protowire.Number = 5
	issueCreatedAt protowire.Number = 6
	issueUpdatedAt protowire.Number = 7
)

// field is one decoded tag/value pair. Bytes aliases the input buffer.
type field struct {
	num   protowire.Number
	typ   protowire.Type
	bytes []byte
	u64   uint64
}

// walk iterates over the fields of an encoded message without copying.
// Unknown wire types are skipped so newer peers can add fields.
func walk(b []byte, fn func(f field) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		f := field{num: num, typ: typ}
		switch typ {
		case protowire.VarintType:
			f.u64, n = protowire.ConsumeVarint(b)
		case protowire.BytesType:
			f.bytes, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]

		if typ != protowire.VarintType && typ != protowire.BytesType {
			continue
		}
		if err := fn(f); err != nil {
			return err
		}
	}
	return nil
}

func appendString(b []byte, num protowire.Number, s string) []byte {
	if s == "" {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendString(b, s)
}

func appendBytes(b []byte, num protowire.Number, v []byte) []byte {
	if len(v) == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, v)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	if v == 0 {
		return b
	}
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func appendBool(b []byte, num protowire.Number, v bool) []byte {
	return appendVarint(b, num, protowire.EncodeBool(v))
}

// appendMessage writes a length-delimited sub-message produced by enc.
func appendMessage(b []byte, num protowire.Number, enc func([]byte) []byte) []byte {
	b = protowire.AppendTag(b, num, protowire.BytesType)
	// Reserve one length byte, then shift if the message turned out larger.
	pos := len(b)
	b = append(b, 0)
	b = enc(b)
	size := len(b) - pos - 1
	if size < 0x80 {
		b[pos] = byte(size)
		return b
	}
	msg := append([]byte(nil), b[pos+1:]...)
	b = protowire.AppendVarint(b[:pos], uint64(size))
	return append(b, msg...)
}

// ToolCallView is a decoded ToolCall whose fields alias the received frame.
// It is valid only while the frame buffer is; use ToolCall to copy it out.
type ToolCallView struct {
	Name      []byte
	Arguments []byte
	CallID    []byte
}

// ToolCall copies the view into a domain value.
func (v ToolCallView) ToolCall() domain.ToolCall {
	return domain.ToolCall{
		Name:      string(v.Name),
		Arguments: string(v.Arguments),
		CallID:    string(v.CallID),
	}
}

// ToolResultView is a decoded ToolResult whose fields alias the received frame.
type ToolResultView struct {
	CallID  []byte
	Success bool
	Content []byte
}

// ToolResult copies the view into a domain value.
func (v ToolResultView) ToolResult() domain.ToolResult {
	return domain.ToolResult{
		CallID:  string(v.CallID),
		Success: v.Success,
		Content: string(v.Content),
	}
}

// AppendToolCall encodes c onto b.
func AppendToolCall(b []byte, c domain.ToolCall) []byte {
	b = appendString(b, callName, c.Name)
	b = appendString(b, callArguments, c.Arguments)
	return appendString(b, callID, c.CallID)
}

// DecodeToolCall decodes a ToolCall without copying its fields.
func DecodeToolCall(b []byte) (ToolCallView, error) {
	var v ToolCallView
	err := walk(b, func(f field) error {
		switch f.num {
		case callName:
			v.Name = f.bytes
		case callArguments:
			v.Arguments = f.bytes
		case callID:
			v.CallID = f.bytes
		}
		return nil
	})
	if err != nil {
		return ToolCallView{}, fmt.Errorf("decode tool call: %w", err)
	}
	return v, nil
}

// AppendToolResult encodes r onto b.
func AppendToolResult(b []byte, r domain.ToolResult) []byte {
	b = appendString(b, resultCallID, r.CallID)
	b = appendBool(b, resultSuccess, r.Success)
	return appendString(b, resultContent, r.Content)
}

// DecodeToolResult decodes a ToolResult without copying its fields.
func DecodeToolResult(b []byte) (ToolResultView, error) {
	var v ToolResultView
	err := walk(b, func(f field) error {
		switch f.num {
		case resultCallID:
			v.CallID = f.bytes
		case resultSuccess:
			v.Success = protowire.DecodeBool(f.u64)
		case resultContent:
			v.Content = f.bytes
		}
		return nil
	})
	if err != nil {
		return ToolResultView{}, fmt.Errorf("decode tool result: %w", err)
	}
	return v, nil
}

func appendToolDefinition(b []byte, d domain.ToolDefinition) []byte {
	b = appendString(b, defName, d.Name)
	b = appendString(b, defDescription, d.Description)
	return appendString(b, defInputSchema, d.InputSchema)
}

func decodeToolDefinition(b []byte) (domain.ToolDefinition, error) {
	var d domain.ToolDefinition
	err := walk(b, func(f field) error {
		switch f.num {
		case defName:
			d.Name = string(f.bytes)
		case defDescription:
			d.Description = string(f.bytes)
		case defInputSchema:
			d.InputSchema = string(f.bytes)
		}
		return nil
	})
	return d, err
}

// AppendToolList encodes defs as a repeated ToolDefinition field.
func AppendToolList(b []byte, defs []domain.ToolDefinition) []byte {
	for _, d := range defs {
		b = appendMessage(b, listItem, func(b []byte) []byte {
			return appendToolDefinition(b, d)
		})
	}
	return b
}

// DecodeToolList decodes a ToolList, preserving order.
func DecodeToolList(b []byte) ([]domain.ToolDefinition, error) {
	defs := []domain.ToolDefinition{}
	err := walk(b, func(f field) error {
		if f.num != listItem {
			return nil
		}
		d, err := decodeToolDefinition(f.bytes)
		if err != nil {
			return err
		}
		defs = append(defs, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("decode tool list: %w", err)
	}
	return defs, nil
}

// AppendPingReply encodes the liveness token.
func AppendPingReply(b []byte, token string) []byte {
	return appendString(b, pingToken, token)
}

// DecodePingReply decodes the liveness token.
func DecodePingReply(b []byte) (string, error) {
	var token string
	err := walk(b, func(f field) error {
		if f.num == pingToken {
			token = string(f.bytes)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("decode ping reply: %w", err)
	}
	return token, nil
}
