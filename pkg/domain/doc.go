/*
Package domain contains the protocol entities and the error taxonomy shared by every
binding of the MCP harness.

It is kept free of I/O and transport concerns: the typed-binary and text-based bindings
translate their envelopes into these types at the boundary, and the benchmark engine only
ever sees these types.

# Key Entities

  - ToolDefinition: A tool's name, description and JSON Schema for its arguments.
  - ToolCall: One invocation request; arguments are an opaque serialized document.
  - ToolResult: The two-state outcome (success payload or failure message) of a call.
  - Issue: The payload exchanged with issue trackers by the GitHub-flavoured tools.
  - LatencySample: One timed benchmark iteration.
*/
package domain
