package mcpbench

// Version is the harness release, reported by the CLI and the MCP bridge.
var Version = "0.3.0"
