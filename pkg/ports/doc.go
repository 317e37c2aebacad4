/*
Package ports defines the capability interfaces of the MCP harness.

Bindings, trackers and the benchmark engine only meet through these interfaces, so a
binding can be swapped without touching tools or the engine.

# Key Interfaces

  - Transport: The client-side protocol surface (listTools, callTool, ping) shared by
    the typed-binary and text-based bindings.
  - GitHubService: The GitHub-flavoured typed surface served next to the generic one.
  - IssueTracker: The external issue store consumed by the issue tools and the
    GitHub surface (GitHub REST, Redis or memory).
*/
package ports
