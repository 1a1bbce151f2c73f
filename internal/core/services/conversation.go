package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure ConversationService implements the interface.
var _ driving.ConversationService = (*ConversationService)(nil)

// ConversationService manages chat sessions and grounds each reply in the index.
//
// Writes to one conversation are serialised by a per-conversation mutex so
// message order matches call order; different conversations proceed in parallel.
type ConversationService struct {
	store     driven.ConversationStore
	retrieval driving.RetrievalService
	now       func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewConversationService creates a new conversation service.
// retrieval may be nil when only history management is needed; Ask then fails.
func NewConversationService(store driven.ConversationStore, retrieval driving.RetrievalService) *ConversationService {
	return &ConversationService{
		store:     store,
		retrieval: retrieval,
		now:       func() time.Time { return time.Now().UTC() },
		locks:     make(map[string]*sync.Mutex),
	}
}

// Create starts a new conversation. An empty title leaves it at
// domain.DefaultConversationTitle until the first question names it.
func (s *ConversationService) Create(ctx context.Context, owner, title string) (*domain.Conversation, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if title == "" {
		title = domain.DefaultConversationTitle
	}

	now := s.now()
	conv := &domain.Conversation{
		ID:        uuid.NewString(),
		Owner:     owner,
		Title:     title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, conv); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}

	logger.Debug("Created conversation %s for %s", conv.ID, owner)
	return conv, nil
}

// List returns the owner's conversations, most recently updated first.
func (s *ConversationService) List(
	ctx context.Context, owner string, opts domain.ListOptions,
) ([]domain.ConversationSummary, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if opts.Offset < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("%w: offset and limit must not be negative", domain.ErrInvalidInput)
	}
	return s.store.List(ctx, owner, opts)
}

// Get returns a conversation with its full message history.
func (s *ConversationService) Get(ctx context.Context, id, owner string) (*domain.Conversation, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, id, owner)
}

// AppendUserMessage appends a user message, titling the conversation on its first one.
func (s *ConversationService) AppendUserMessage(ctx context.Context, id, owner, text string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	unlock := s.lock(id)
	defer unlock()

	msg := domain.UserMessage{ID: uuid.NewString(), Text: text, CreatedAt: s.now()}
	if err := s.store.Append(ctx, id, owner, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}

	// The message is stored; failing here would invite a duplicate on retry.
	if err := s.autoTitle(ctx, id, owner, text); err != nil {
		logger.Warn("Could not title conversation %s: %v", id, err)
	}
	return nil
}

// AppendAssistantMessage appends an assistant reply with its sources.
func (s *ConversationService) AppendAssistantMessage(
	ctx context.Context, id, owner, text string, sources []domain.SourceAttribution,
) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	msg := domain.AssistantMessage{
		ID:        uuid.NewString(),
		Text:      text,
		Sources:   append([]domain.SourceAttribution(nil), sources...),
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, id, owner, msg); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

// Ask answers question within a conversation and persists the exchange.
// The question and reply are appended together only after the answer is
// generated, so a failed generation leaves the conversation untouched.
func (s *ConversationService) Ask(
	ctx context.Context, id, owner, question string, opts domain.RetrievalOptions,
) (*domain.Answer, error) {
	if err := requireOwner(owner); err != nil {
		return nil, err
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}
	if s.retrieval == nil {
		return nil, fmt.Errorf("%w: retrieval is not configured", domain.ErrEmbeddingUnavailable)
	}

	unlock := s.lock(id)
	defer unlock()

	// Ownership first, so other users learn nothing from retrieval errors.
	if _, err := s.store.Get(ctx, id, owner); err != nil {
		return nil, err
	}

	askedAt := s.now()
	answer, err := s.retrieval.Answer(ctx, question, opts)
	if err != nil {
		return nil, err
	}

	user := domain.UserMessage{ID: uuid.NewString(), Text: question, CreatedAt: askedAt}
	reply := domain.AssistantMessage{
		ID:        uuid.NewString(),
		Text:      answer.Text,
		Sources:   append([]domain.SourceAttribution(nil), answer.Sources...),
		CreatedAt: s.now(),
	}
	if err := s.store.Append(ctx, id, owner, user, reply); err != nil {
		return nil, fmt.Errorf("save exchange: %w", err)
	}

	if err := s.autoTitle(ctx, id, owner, question); err != nil {
		logger.Warn("Could not title conversation %s: %v", id, err)
	}

	return answer, nil
}

// Rename sets an explicit title.
func (s *ConversationService) Rename(ctx context.Context, id, owner, title string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}
	title, err := normalizeTitle(title)
	if err != nil {
		return err
	}
	if title == "" {
		return fmt.Errorf("%w: title is empty", domain.ErrInvalidInput)
	}

	unlock := s.lock(id)
	defer unlock()
	return s.store.SetTitle(ctx, id, owner, title)
}

// Delete removes a conversation.
func (s *ConversationService) Delete(ctx context.Context, id, owner string) error {
	if err := requireOwner(owner); err != nil {
		return err
	}

	unlock := s.lock(id)
	defer unlock()

	if err := s.store.Delete(ctx, id, owner); err != nil {
		return err
	}
	s.forget(id)
	return nil
}

// DeleteAll removes every conversation of owner.
func (s *ConversationService) DeleteAll(ctx context.Context, owner string) (int, error) {
	if err := requireOwner(owner); err != nil {
		return 0, err
	}
	n, err := s.store.DeleteAll(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("delete conversations: %w", err)
	}
	logger.Info("Deleted %d conversations for %s", n, owner)
	return n, nil
}

// autoTitle renames a default-titled conversation after its first user message.
// The store only renames while the title is still the default, so later
// messages never change it.
func (s *ConversationService) autoTitle(ctx context.Context, id, owner, text string) error {
	renamed, err := s.store.RenameIfDefault(ctx, id, owner, domain.DeriveTitle(text))
	if err != nil {
		return fmt.Errorf("rename conversation: %w", err)
	}
	if renamed {
		logger.Debug("Titled conversation %s", id)
	}
	return nil
}

// lock acquires the mutex for one conversation and returns its release func.
func (s *ConversationService) lock(id string) func() {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sync.Mutex{}
		s.locks[id] = l
	}
	s.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// forget drops the mutex of a deleted conversation. Callers hold its lock.
func (s *ConversationService) forget(id string) {
	s.mu.Lock()
	delete(s.locks, id)
	s.mu.Unlock()
}

// normalizeTitle collapses whitespace and enforces domain.MaxTitleLength.
func normalizeTitle(title string) (string, error) {
	title = strings.Join(strings.Fields(title), " ")
	if len([]rune(title)) > domain.MaxTitleLength {
		return "", fmt.Errorf("%w: title longer than %d characters", domain.ErrInvalidInput, domain.MaxTitleLength)
	}
	return title, nil
}

func requireOwner(owner string) error {
	if strings.TrimSpace(owner) == "" {
		return fmt.Errorf("%w: owner is required", domain.ErrInvalidInput)
	}
	return nil
}
