// Package mcp provides an MCP (Model Context Protocol) server adapter for Folio.
// It lets AI assistants ask questions about, search and add to the local PDF index.
package mcp

import "errors"

// ErrMissingRetrievalService is returned when the retrieval service is not provided.
var ErrMissingRetrievalService = errors.New("mcp: retrieval service is required")

// ErrMissingOwner is returned when conversations are exposed without an owner.
var ErrMissingOwner = errors.New("mcp: owner is required when conversations are enabled")
