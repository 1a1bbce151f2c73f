// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/folio/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewConversations lists the user's conversations.
	ViewConversations ViewType = iota
	// ViewChat is a single conversation with its input.
	ViewChat
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewConversations:
		return "conversations"
	case ViewChat:
		return "chat"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// ErrorOccurred signals that an error happened.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}

// ConversationsLoaded carries the owner's conversation list.
type ConversationsLoaded struct {
	Conversations []domain.ConversationSummary
	Err           error
}

// ConversationCreated signals a new conversation was started.
type ConversationCreated struct {
	Conversation *domain.Conversation
	Err          error
}

// ConversationSelected asks the app to open a conversation.
type ConversationSelected struct {
	ID string
}

// ConversationLoaded carries a conversation with its messages.
type ConversationLoaded struct {
	Conversation *domain.Conversation
	Err          error
}

// ConversationDeleted signals a conversation was removed.
type ConversationDeleted struct {
	ID  string
	Err error
}

// AnswerReceived carries the reply to a question asked in a conversation.
type AnswerReceived struct {
	ConversationID string
	Question       string
	Answer         *domain.Answer
	Err            error
}

// IndexStatsLoaded carries index statistics for the header.
type IndexStatsLoaded struct {
	Info domain.IndexInfo
	Err  error
}
