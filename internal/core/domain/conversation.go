package domain

import (
	"strings"
	"time"
)

// DefaultConversationTitle is the title of a conversation before its first message.
const DefaultConversationTitle = "New Chat"

// Title and preview limits.
const (
	// TitleLength is the number of characters kept when deriving a title from a message.
	TitleLength = 50

	// PreviewLength is the number of characters kept in a last-message preview.
	PreviewLength = 100

	// MaxTitleLength bounds explicitly set titles.
	MaxTitleLength = 200
)

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry in a conversation.
// It is implemented only by UserMessage and AssistantMessage, so source
// attributions can only exist on assistant replies.
type Message interface {
	// MessageID returns the message identifier.
	MessageID() string

	// Role returns who authored the message.
	Role() Role

	// Content returns the message text.
	Content() string

	// Timestamp returns when the message was created.
	Timestamp() time.Time

	message()
}

// UserMessage is a question or statement from the conversation owner.
type UserMessage struct {
	ID        string
	Text      string
	CreatedAt time.Time
}

// MessageID implements Message.
func (m UserMessage) MessageID() string { return m.ID }

// Role implements Message.
func (m UserMessage) Role() Role { return RoleUser }

// Content implements Message.
func (m UserMessage) Content() string { return m.Text }

// Timestamp implements Message.
func (m UserMessage) Timestamp() time.Time { return m.CreatedAt }

func (UserMessage) message() {}

// AssistantMessage is a generated answer with the sources that grounded it.
type AssistantMessage struct {
	ID        string
	Text      string
	Sources   []SourceAttribution
	CreatedAt time.Time
}

// MessageID implements Message.
func (m AssistantMessage) MessageID() string { return m.ID }

// Role implements Message.
func (m AssistantMessage) Role() Role { return RoleAssistant }

// Content implements Message.
func (m AssistantMessage) Content() string { return m.Text }

// Timestamp implements Message.
func (m AssistantMessage) Timestamp() time.Time { return m.CreatedAt }

func (AssistantMessage) message() {}

// Conversation is a chat session owned by exactly one user.
type Conversation struct {
	// ID is the unique identifier.
	ID string

	// Owner is the user identifier supplied by the authentication layer.
	Owner string

	// Title is the display title.
	Title string

	// CreatedAt is when the conversation was created.
	CreatedAt time.Time

	// UpdatedAt is bumped on every append or rename.
	UpdatedAt time.Time

	// MessageCount is the number of messages.
	MessageCount int

	// Messages holds the full ordered history. Populated by Get only.
	Messages []Message
}

// HasDefaultTitle reports whether the conversation has never been titled.
func (c *Conversation) HasDefaultTitle() bool {
	return c.Title == DefaultConversationTitle
}

// ConversationSummary is the list view of a conversation.
type ConversationSummary struct {
	ID           string
	Title        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	MessageCount int

	// LastMessage previews the most recent user message. Empty for new conversations.
	LastMessage string
}

// ListOptions paginates conversation listings.
type ListOptions struct {
	// Offset is the number of conversations to skip.
	Offset int

	// Limit is the maximum number returned. Zero means no limit.
	Limit int
}

// DeriveTitle builds a conversation title from the first user message.
func DeriveTitle(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultConversationTitle
	}
	return Truncate(text, TitleLength)
}

// Preview builds a last-message preview.
func Preview(text string) string {
	return Truncate(strings.Join(strings.Fields(text), " "), PreviewLength)
}
