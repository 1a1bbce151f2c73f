package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

type conversationRecord struct {
	conv     domain.Conversation
	messages []domain.Message
	// touched orders conversations updated within the same clock tick.
	touched uint64
}

// ConversationStore is an in-memory implementation of driven.ConversationStore.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversationRecord
	clock         uint64
	now           func() time.Time
}

// NewConversationStore creates a new in-memory conversation store.
func NewConversationStore() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversationRecord),
		now:           time.Now,
	}
}

// Create stores a new conversation.
func (s *ConversationStore) Create(_ context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" || conv.Owner == "" {
		return domain.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.conversations[conv.ID]; exists {
		return fmt.Errorf("%w: conversation %s already exists", domain.ErrInvalidInput, conv.ID)
	}

	stored := *conv
	stored.Messages = nil
	stored.MessageCount = 0
	if stored.Title == "" {
		stored.Title = domain.DefaultConversationTitle
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = s.now()
	}
	if stored.UpdatedAt.IsZero() {
		stored.UpdatedAt = stored.CreatedAt
	}

	s.clock++
	s.conversations[conv.ID] = &conversationRecord{conv: stored, touched: s.clock}
	return nil
}

// lookup returns the record if it exists and belongs to owner. Caller holds the lock.
func (s *ConversationStore) lookup(id, owner string) (*conversationRecord, error) {
	rec, ok := s.conversations[id]
	if !ok || rec.conv.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return rec, nil
}

func (s *ConversationStore) touch(rec *conversationRecord) {
	s.clock++
	rec.touched = s.clock
	rec.conv.UpdatedAt = s.now()
}

// Append adds messages to the end of a conversation.
func (s *ConversationStore) Append(_ context.Context, id, owner string, msgs ...domain.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(id, owner)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	for _, msg := range msgs {
		rec.messages = append(rec.messages, copyMessage(msg))
	}
	rec.conv.MessageCount = len(rec.messages)
	s.touch(rec)
	return nil
}

// RenameIfDefault sets the title only while it is still the default.
func (s *ConversationStore) RenameIfDefault(_ context.Context, id, owner, title string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(id, owner)
	if err != nil {
		return false, err
	}
	if !rec.conv.HasDefaultTitle() {
		return false, nil
	}
	rec.conv.Title = title
	s.touch(rec)
	return true, nil
}

// SetTitle sets the title unconditionally.
func (s *ConversationStore) SetTitle(_ context.Context, id, owner, title string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.lookup(id, owner)
	if err != nil {
		return err
	}
	rec.conv.Title = title
	s.touch(rec)
	return nil
}

// List returns summaries of owner's conversations, most recently updated first.
func (s *ConversationStore) List(
	_ context.Context, owner string, opts domain.ListOptions,
) ([]domain.ConversationSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*conversationRecord, 0, len(s.conversations))
	for _, rec := range s.conversations {
		if rec.conv.Owner == owner {
			records = append(records, rec)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].conv.UpdatedAt.Equal(records[j].conv.UpdatedAt) {
			return records[i].conv.UpdatedAt.After(records[j].conv.UpdatedAt)
		}
		return records[i].touched > records[j].touched
	})

	records = paginate(records, opts)
	summaries := make([]domain.ConversationSummary, 0, len(records))
	for _, rec := range records {
		summaries = append(summaries, domain.ConversationSummary{
			ID:           rec.conv.ID,
			Title:        rec.conv.Title,
			CreatedAt:    rec.conv.CreatedAt,
			UpdatedAt:    rec.conv.UpdatedAt,
			MessageCount: rec.conv.MessageCount,
			LastMessage:  lastUserPreview(rec.messages),
		})
	}
	return summaries, nil
}

// Get returns a conversation with its full message history.
func (s *ConversationStore) Get(_ context.Context, id, owner string) (*domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.lookup(id, owner)
	if err != nil {
		return nil, err
	}
	conv := rec.conv
	conv.Messages = make([]domain.Message, 0, len(rec.messages))
	for _, msg := range rec.messages {
		conv.Messages = append(conv.Messages, copyMessage(msg))
	}
	return &conv, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(_ context.Context, id, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.lookup(id, owner); err != nil {
		return err
	}
	delete(s.conversations, id)
	return nil
}

// DeleteAll removes every conversation belonging to owner.
func (s *ConversationStore) DeleteAll(_ context.Context, owner string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.conversations {
		if rec.conv.Owner == owner {
			delete(s.conversations, id)
			removed++
		}
	}
	return removed, nil
}

func paginate[T any](items []T, opts domain.ListOptions) []T {
	if opts.Offset > 0 {
		if opts.Offset >= len(items) {
			return nil
		}
		items = items[opts.Offset:]
	}
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items
}

func lastUserPreview(msgs []domain.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role() == domain.RoleUser {
			return domain.Preview(msgs[i].Content())
		}
	}
	return ""
}

func copyMessage(msg domain.Message) domain.Message {
	if am, ok := msg.(domain.AssistantMessage); ok {
		am.Sources = append([]domain.SourceAttribution(nil), am.Sources...)
		return am
	}
	if am, ok := msg.(*domain.AssistantMessage); ok {
		cp := *am
		cp.Sources = append([]domain.SourceAttribution(nil), am.Sources...)
		return cp
	}
	if um, ok := msg.(*domain.UserMessage); ok {
		return *um
	}
	return msg
}
