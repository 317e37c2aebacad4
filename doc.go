/*
Package mcpbench is a transport-comparison harness for the Model Context Protocol (MCP).

A client issues named tool calls with structured arguments against a server that dispatches
them to registered tool implementations. The same logical protocol is carried by two bindings:

  - typed-binary: schema-typed tagged fields over a persistent, multiplexed TCP connection,
    with zero-copy reads of the received envelope.
  - text-based: JSON-RPC 2.0 envelopes over HTTP request/response.

The benchmark engine drives identical workloads through both bindings and reports mean, min
and max latency per operation, plus the speedup of the typed-binary binding relative to the
text-based baseline. Failed calls and unreachable transports are reported separately from
latency.

# Layout

  - pkg/domain: protocol entities (ToolDefinition, ToolCall, ToolResult) and error taxonomy.
  - pkg/registry: tool registry with JSON Schema argument validation.
  - pkg/dispatch: the server-side dispatch convention shared by every binding.
  - pkg/adapters/wire: the typed-binary binding (schema, framing, server, client).
  - pkg/adapters/jsonrpc: the text-based binding (JSON-RPC over HTTP).
  - pkg/bench: the benchmark engine and its report.

# Usage

	reg := registry.New()
	_ = tools.RegisterDefaults(reg, tools.Config{Tracker: memory.NewTracker()})
	reg.Seal()

	d := dispatch.New(reg)
	srv := wire.NewServer(wire.WithDispatcher(d))
	go srv.ListenAndServe(ctx, "127.0.0.1:8080")

	client, err := wire.Dial(ctx, "127.0.0.1:8080")
	if err != nil {
		log.Fatal(err)
	}
	defer client.Close()

	res, err := ports.Call(ctx, client, "echo", `{"text":"hello"}`)
*/
package mcpbench
