/*
Package wire implements the typed-binary binding.

Messages are schema-typed records of tagged fields (protobuf wire format), carried in
length-prefixed frames over one persistent TCP connection. Every frame names a stream id,
so a client may keep many calls in flight and the server answers them in completion order.

A connection opens with a preamble ("MCPW" plus the schema version byte) in both
directions; a peer speaking another version is disconnected.

Decoding is zero-copy: ToolCallView and ToolResultView alias the received frame, and
strings are materialized once when crossing into domain types.

The server can mount two surfaces side by side: the generic tool surface
(listTools, callTool, ping) backed by a dispatch.Dispatcher, and the GitHub-flavoured
surface (createIssue, listIssues, getIssue, ping) backed by a ports.GitHubService.
*/
package wire
