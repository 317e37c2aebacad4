/*
Package jsonrpc implements the text-based binding: JSON-RPC 2.0 envelopes carried over
HTTP request/response.

The server routes tools/list, tools/call and ping (plus the listTools and callTool
aliases) to a dispatch.Dispatcher, and also serves GET /health and GET /metrics.
The client correlates every response with its request id and reports HTTP, envelope
and JSON-RPC error objects as transport errors; tool failures arrive as failed results.
*/
package jsonrpc
