// Package tui provides an interactive terminal user interface for folio.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"strings"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Conversation manages chat sessions and answers questions in them.
	Conversation driving.ConversationService

	// Retrieval reports index statistics. Optional.
	Retrieval driving.RetrievalService

	// Owner is the user every conversation call is scoped to.
	Owner string

	// Options are passed with every question asked in a conversation.
	Options domain.RetrievalOptions
}

// NewPorts creates a new Ports aggregate with the given services.
func NewPorts(conversation driving.ConversationService, retrieval driving.RetrievalService, owner string) *Ports {
	return &Ports{
		Conversation: conversation,
		Retrieval:    retrieval,
		Owner:        owner,
	}
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Conversation == nil {
		return ErrMissingConversationService
	}
	if strings.TrimSpace(p.Owner) == "" {
		return ErrMissingOwner
	}
	return nil
}
