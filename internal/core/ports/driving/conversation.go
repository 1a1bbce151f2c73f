package driving

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// ConversationService manages chat sessions for an owner.
// Every call is scoped to owner; other users' conversations read as not found.
type ConversationService interface {
	// Create starts a new conversation. An empty title means
	// domain.DefaultConversationTitle; others are validated like Rename.
	Create(ctx context.Context, owner, title string) (*domain.Conversation, error)

	// List returns the owner's conversations, most recently updated first.
	List(ctx context.Context, owner string, opts domain.ListOptions) ([]domain.ConversationSummary, error)

	// Get returns a conversation with its full message history.
	Get(ctx context.Context, id, owner string) (*domain.Conversation, error)

	// AppendUserMessage appends a user message, titling the conversation on its first one.
	AppendUserMessage(ctx context.Context, id, owner, text string) error

	// AppendAssistantMessage appends an assistant reply with its sources.
	AppendAssistantMessage(ctx context.Context, id, owner, text string, sources []domain.SourceAttribution) error

	// Ask answers question within a conversation and persists the exchange.
	// Nothing is persisted when answering fails.
	Ask(ctx context.Context, id, owner, question string, opts domain.RetrievalOptions) (*domain.Answer, error)

	// Rename sets an explicit title.
	Rename(ctx context.Context, id, owner, title string) error

	// Delete removes a conversation.
	Delete(ctx context.Context, id, owner string) error

	// DeleteAll removes every conversation of owner.
	DeleteAll(ctx context.Context, owner string) (int, error)
}
