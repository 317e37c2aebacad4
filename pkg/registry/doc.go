// Package registry holds the tools a server exposes, keyed by name, with their
// compiled JSON Schema for argument validation.
package registry
