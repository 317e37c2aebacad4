// Package mcp bridges the tool registry to real MCP hosts using mark3labs/mcp-go.
//
// It is not one of the benchmarked bindings. It lets an MCP-capable host such as an
// editor or desktop assistant discover and call the same tools over stdio or SSE.
package mcp
