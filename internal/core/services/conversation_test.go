package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// stubRetrieval returns a fixed answer or error and counts calls.
type stubRetrieval struct {
	mu     sync.Mutex
	calls  int
	answer *domain.Answer
	err    error
	delay  time.Duration
}

func (s *stubRetrieval) Ingest(context.Context, []domain.UploadedFile) (*domain.IngestResult, error) {
	return &domain.IngestResult{}, nil
}

func (s *stubRetrieval) Answer(_ context.Context, question string, _ domain.RetrievalOptions) (*domain.Answer, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.answer != nil {
		return s.answer, nil
	}
	return &domain.Answer{Text: "answer to " + question}, nil
}

func (s *stubRetrieval) Retrieve(context.Context, string, domain.RetrievalOptions) ([]domain.SourceAttribution, error) {
	return nil, nil
}

func (s *stubRetrieval) Stats(context.Context) (domain.IndexInfo, error) { return domain.IndexInfo{}, nil }

func (s *stubRetrieval) Clear(context.Context) error { return nil }

func (s *stubRetrieval) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func newConversationFixture(retrieval driving.RetrievalService) (*ConversationService, *memory.ConversationStore) {
	store := memory.NewConversationStore()
	return NewConversationService(store, retrieval), store
}

func TestConversationService_Create(t *testing.T) {
	svc, _ := newConversationFixture(nil)

	conv, err := svc.Create(context.Background(), "alice", "")

	require.NoError(t, err)
	assert.NotEmpty(t, conv.ID)
	assert.Equal(t, "alice", conv.Owner)
	assert.Equal(t, domain.DefaultConversationTitle, conv.Title)
	assert.Zero(t, conv.MessageCount)

	_, err = svc.Create(context.Background(), "  ", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConversationService_Create_WithTitle(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()

	conv, err := svc.Create(ctx, "alice", "  Trip   planning ")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", conv.Title)

	// A chosen title survives the first question.
	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "Where should we go in May?"))
	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, "Trip planning", got.Title)

	_, err = svc.Create(ctx, "alice", strings.Repeat("x", domain.MaxTitleLength+1))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	blank, err := svc.Create(ctx, "alice", "   ")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConversationTitle, blank.Title)
}

// untitledStore fails every automatic rename.
type untitledStore struct {
	*memory.ConversationStore
}

func (untitledStore) RenameIfDefault(context.Context, string, string, string) (bool, error) {
	return false, errors.New("disk full")
}

func TestConversationService_AppendUserMessage_TitleFailureKeepsMessage(t *testing.T) {
	store := untitledStore{memory.NewConversationStore()}
	svc := NewConversationService(store, nil)
	ctx := context.Background()
	conv, err := svc.Create(ctx, "alice", "")
	require.NoError(t, err)

	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "first question"))

	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, got.MessageCount)
	assert.Len(t, got.Messages, 1)
	assert.Equal(t, domain.DefaultConversationTitle, got.Title)
}

func TestConversationService_AppendMessagesInOrder(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	conv, err := svc.Create(ctx, "alice", "")
	require.NoError(t, err)

	sources := []domain.SourceAttribution{{Document: "a.pdf", Page: 3, Snippet: "x", Score: 0.8}}
	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "first question"))
	require.NoError(t, svc.AppendAssistantMessage(ctx, conv.ID, "alice", "first answer", sources))
	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "second question"))

	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, got.Messages, 3)
	assert.Equal(t, 3, got.MessageCount)
	assert.Equal(t, "first question", got.Messages[0].Content())
	assert.Equal(t, "first answer", got.Messages[1].Content())
	assert.Equal(t, "second question", got.Messages[2].Content())

	reply, ok := got.Messages[1].(domain.AssistantMessage)
	require.True(t, ok)
	assert.Equal(t, sources, reply.Sources)

	// Titled from the first user message only.
	assert.Equal(t, "first question", got.Title)
}

func TestConversationService_AppendUserMessage_Validation(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	assert.ErrorIs(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "   "), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.AppendUserMessage(ctx, conv.ID, "", "hi"), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.AppendUserMessage(ctx, conv.ID, "mallory", "hi"), domain.ErrNotFound)
	assert.ErrorIs(t, svc.AppendUserMessage(ctx, "missing", "alice", "hi"), domain.ErrNotFound)
}

func TestConversationService_TitleIsTruncated(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	long := strings.Repeat("abcdefghij", 8)
	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", long))

	got, _ := svc.Get(ctx, conv.ID, "alice")
	assert.Equal(t, long[:50]+"...", got.Title)
}

func TestConversationService_Ask_PersistsExchange(t *testing.T) {
	retrieval := &stubRetrieval{answer: &domain.Answer{
		Text:    "Paris.",
		Sources: []domain.SourceAttribution{{Document: "atlas.pdf", Page: 2, Snippet: "The capital", Score: 0.9}},
	}}
	svc, _ := newConversationFixture(retrieval)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	answer, err := svc.Ask(ctx, conv.ID, "alice", "What is the capital of France?", domain.RetrievalOptions{})

	require.NoError(t, err)
	assert.Equal(t, "Paris.", answer.Text)

	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, domain.RoleUser, got.Messages[0].Role())
	assert.Equal(t, domain.RoleAssistant, got.Messages[1].Role())
	assert.Equal(t, answer.Sources, got.Messages[1].(domain.AssistantMessage).Sources)
	assert.Equal(t, "What is the capital of France?", got.Title)
}

func TestConversationService_Ask_FailurePersistsNothing(t *testing.T) {
	retrieval := &stubRetrieval{err: fmt.Errorf("%w: timeout", domain.ErrGenerationFailed)}
	svc, _ := newConversationFixture(retrieval)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	_, err := svc.Ask(ctx, conv.ID, "alice", "question?", domain.RetrievalOptions{})

	require.ErrorIs(t, err, domain.ErrGenerationFailed)
	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	assert.Empty(t, got.Messages)
	assert.Equal(t, domain.DefaultConversationTitle, got.Title)
}

func TestConversationService_Ask_ChecksOwnershipBeforeRetrieval(t *testing.T) {
	retrieval := &stubRetrieval{}
	svc, _ := newConversationFixture(retrieval)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	_, err := svc.Ask(ctx, conv.ID, "mallory", "question?", domain.RetrievalOptions{})

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Zero(t, retrieval.callCount())
}

func TestConversationService_Ask_Validation(t *testing.T) {
	retrieval := &stubRetrieval{}
	svc, _ := newConversationFixture(retrieval)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	_, err := svc.Ask(ctx, conv.ID, "alice", " ", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Zero(t, retrieval.callCount())

	noRetrieval, _ := newConversationFixture(nil)
	_, err = noRetrieval.Ask(ctx, conv.ID, "alice", "q", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestConversationService_Ask_SerialisesSameConversation(t *testing.T) {
	retrieval := &stubRetrieval{delay: 5 * time.Millisecond}
	svc, _ := newConversationFixture(retrieval)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	const n = 8
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := svc.Ask(ctx, conv.ID, "alice", fmt.Sprintf("q%d", i), domain.RetrievalOptions{})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, conv.ID, "alice")
	require.NoError(t, err)
	require.Len(t, got.Messages, 2*n)
	for i := 0; i < len(got.Messages); i += 2 {
		q := got.Messages[i].Content()
		assert.Equal(t, domain.RoleUser, got.Messages[i].Role())
		assert.Equal(t, "answer to "+q, got.Messages[i+1].Content(), "reply must follow its question")
	}
}

func TestConversationService_ListOrderAndPagination(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		conv, err := svc.Create(ctx, "alice", "")
		require.NoError(t, err)
		ids = append(ids, conv.ID)
	}
	_, _ = svc.Create(ctx, "bob", "")
	require.NoError(t, svc.AppendUserMessage(ctx, ids[0], "alice", "bump the oldest"))

	all, err := svc.List(ctx, "alice", domain.ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, ids[0], all[0].ID)
	assert.Equal(t, "bump the oldest", all[0].LastMessage)

	page, err := svc.List(ctx, "alice", domain.ListOptions{Offset: 1, Limit: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, all[1].ID, page[0].ID)

	_, err = svc.List(ctx, "alice", domain.ListOptions{Offset: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConversationService_Rename(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	require.NoError(t, svc.Rename(ctx, conv.ID, "alice", "  Trip   planning "))
	got, _ := svc.Get(ctx, conv.ID, "alice")
	assert.Equal(t, "Trip planning", got.Title)

	// An explicit title is never replaced by auto-titling.
	require.NoError(t, svc.AppendUserMessage(ctx, conv.ID, "alice", "hello"))
	got, _ = svc.Get(ctx, conv.ID, "alice")
	assert.Equal(t, "Trip planning", got.Title)

	assert.ErrorIs(t, svc.Rename(ctx, conv.ID, "alice", " "), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Rename(ctx, conv.ID, "alice", strings.Repeat("x", 201)), domain.ErrInvalidInput)
	assert.ErrorIs(t, svc.Rename(ctx, conv.ID, "bob", "mine"), domain.ErrNotFound)
}

func TestConversationService_Delete(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	conv, _ := svc.Create(ctx, "alice", "")

	assert.ErrorIs(t, svc.Delete(ctx, conv.ID, "bob"), domain.ErrNotFound)
	require.NoError(t, svc.Delete(ctx, conv.ID, "alice"))
	assert.ErrorIs(t, svc.Delete(ctx, conv.ID, "alice"), domain.ErrNotFound)

	_, err := svc.Get(ctx, conv.ID, "alice")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestConversationService_DeleteAll(t *testing.T) {
	svc, _ := newConversationFixture(nil)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, _ = svc.Create(ctx, "alice", "")
	}
	bobs, _ := svc.Create(ctx, "bob", "")

	n, err := svc.DeleteAll(ctx, "alice")

	require.NoError(t, err)
	assert.Equal(t, 3, n)
	list, _ := svc.List(ctx, "alice", domain.ListOptions{})
	assert.Empty(t, list)
	_, err = svc.Get(ctx, bobs.ID, "bob")
	assert.NoError(t, err)
}
