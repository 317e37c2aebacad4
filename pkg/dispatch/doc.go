/*
Package dispatch implements the server-side dispatch convention shared by every binding.

A binding decodes its envelope into a domain.ToolCall, hands it to Dispatcher.Dispatch and
encodes the returned domain.ToolResult. Lookup, argument validation, handler invocation
with a timeout, panic recovery and metrics all happen here, so both bindings treat
failures identically: a handler problem is always a failed result, never a transport fault.
*/
package dispatch
