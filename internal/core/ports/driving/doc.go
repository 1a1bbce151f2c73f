// Package driving provides interfaces for inbound adapters (primary ports).
// The CLI, MCP server and TUI call the core only through these interfaces.
package driving
