/*
Package tools provides the built-in tools served by the harness.

  - echo: returns its argument document unchanged.
  - slow_echo: echo after a fixed delay, to expose dispatch concurrency.
  - fail: always fails, to exercise failure isolation.
  - create_github_issue, list_github_issues, get_github_issue: issue operations
    backed by a ports.IssueTracker.

Handlers own their argument schema: arguments arrive as an opaque JSON document
and are decoded here, never in the transports.
*/
package tools
