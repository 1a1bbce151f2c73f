package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// ConversationStore persists chat sessions.
//
// Every method is scoped by owner: a conversation that exists but belongs to
// someone else is reported as domain.ErrNotFound.
type ConversationStore interface {
	// Create stores a new conversation. Messages on the argument are ignored.
	Create(ctx context.Context, conv *domain.Conversation) error

	// Append adds messages to the end of a conversation in a single transaction,
	// bumping UpdatedAt and MessageCount.
	Append(ctx context.Context, id, owner string, msgs ...domain.Message) error

	// RenameIfDefault sets the title only while it is still the default.
	// Returns whether the title changed.
	RenameIfDefault(ctx context.Context, id, owner, title string) (bool, error)

	// SetTitle sets the title unconditionally.
	SetTitle(ctx context.Context, id, owner, title string) error

	// List returns summaries ordered by UpdatedAt descending.
	List(ctx context.Context, owner string, opts domain.ListOptions) ([]domain.ConversationSummary, error)

	// Get returns a conversation with its full message history.
	Get(ctx context.Context, id, owner string) (*domain.Conversation, error)

	// Delete removes a conversation and its messages.
	Delete(ctx context.Context, id, owner string) error

	// DeleteAll removes every conversation of owner and returns how many were removed.
	DeleteAll(ctx context.Context, owner string) (int, error)
}
