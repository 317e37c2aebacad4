// Package redis provides a Redis-backed issue tracker, suitable for sharing issue
// state between several harness servers.
package redis
