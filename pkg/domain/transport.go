package domain

import "fmt"

// TransportKind identifies a transport binding.
type TransportKind string

const (
	// TypedBinary is the schema-typed, multiplexed binary binding.
	TypedBinary TransportKind = "typed-binary"
	// TextBased is the JSON-RPC over HTTP binding.
	TextBased TransportKind = "text-based"
)

// ParseTransportKind accepts the canonical names plus the short aliases used on the command line.
func ParseTransportKind(s string) (TransportKind, error) {
	switch s {
	case "typed-binary", "binary", "wire":
		return TypedBinary, nil
	case "text-based", "text", "jsonrpc", "json-rpc":
		return TextBased, nil
	default:
		return "", fmt.Errorf("unknown transport %q", s)
	}
}

func (k TransportKind) String() string {
	return string(k)
}
