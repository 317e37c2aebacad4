/*
Package observability provides the Prometheus collectors shared by the harness servers.

Metrics live on a private registry so that several servers (and tests) can coexist in one
process without colliding on the global default registerer.

# Collectors

  - mcpbench_tool_calls_total{transport,tool,outcome}: dispatched calls by outcome.
  - mcpbench_tool_call_duration_seconds{transport,tool}: handler latency.
  - mcpbench_connections_active{transport}: open client connections.
  - mcpbench_frames_total{transport,direction}: envelopes read and written.
*/
package observability
