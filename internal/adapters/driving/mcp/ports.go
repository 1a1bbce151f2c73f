package mcp

import (
	"strings"

	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Retrieval ingests documents and answers questions.
	Retrieval driving.RetrievalService

	// Conversation exposes chat history. Optional.
	Conversation driving.ConversationService

	// Owner is the user every conversation call is scoped to.
	// An MCP server runs on behalf of one local user.
	Owner string
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Retrieval == nil {
		return ErrMissingRetrievalService
	}
	if p.Conversation != nil && strings.TrimSpace(p.Owner) == "" {
		return ErrMissingOwner
	}
	return nil
}
