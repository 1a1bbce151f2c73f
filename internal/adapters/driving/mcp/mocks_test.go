package mcp

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	answer  *domain.Answer
	sources []domain.SourceAttribution
	info    domain.IndexInfo
	ingest  *domain.IngestResult
	err     error

	lastQuestion string
	lastOpts     domain.RetrievalOptions
	lastFiles    []domain.UploadedFile
}

func (m *mockRetrievalService) Ingest(_ context.Context, files []domain.UploadedFile) (*domain.IngestResult, error) {
	m.lastFiles = files
	if m.err != nil {
		return nil, m.err
	}
	if m.ingest != nil {
		return m.ingest, nil
	}
	return &domain.IngestResult{IndexedFiles: len(files)}, nil
}

func (m *mockRetrievalService) Answer(
	_ context.Context, question string, opts domain.RetrievalOptions,
) (*domain.Answer, error) {
	m.lastQuestion = question
	m.lastOpts = opts
	return m.answer, m.err
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.SourceAttribution, error) {
	m.lastQuestion = question
	m.lastOpts = opts
	return m.sources, m.err
}

func (m *mockRetrievalService) Stats(_ context.Context) (domain.IndexInfo, error) {
	return m.info, m.err
}

func (m *mockRetrievalService) Clear(_ context.Context) error {
	return m.err
}

// mockConversationService is a mock implementation of driving.ConversationService.
type mockConversationService struct {
	conversation *domain.Conversation
	summaries    []domain.ConversationSummary
	answer       *domain.Answer
	err          error

	lastOwner string
	lastID    string
	lastTitle string
	lastList  domain.ListOptions
}

func (m *mockConversationService) Create(_ context.Context, owner, title string) (*domain.Conversation, error) {
	m.lastOwner = owner
	m.lastTitle = title
	return m.conversation, m.err
}

func (m *mockConversationService) List(
	_ context.Context, owner string, opts domain.ListOptions,
) ([]domain.ConversationSummary, error) {
	m.lastOwner = owner
	m.lastList = opts
	return m.summaries, m.err
}

func (m *mockConversationService) Get(_ context.Context, id, owner string) (*domain.Conversation, error) {
	m.lastID = id
	m.lastOwner = owner
	return m.conversation, m.err
}

func (m *mockConversationService) AppendUserMessage(_ context.Context, _, _, _ string) error {
	return m.err
}

func (m *mockConversationService) AppendAssistantMessage(
	_ context.Context, _, _, _ string, _ []domain.SourceAttribution,
) error {
	return m.err
}

func (m *mockConversationService) Ask(
	_ context.Context, id, owner, _ string, _ domain.RetrievalOptions,
) (*domain.Answer, error) {
	m.lastID = id
	m.lastOwner = owner
	return m.answer, m.err
}

func (m *mockConversationService) Rename(_ context.Context, _, _, _ string) error {
	return m.err
}

func (m *mockConversationService) Delete(_ context.Context, _, _ string) error {
	return m.err
}

func (m *mockConversationService) DeleteAll(_ context.Context, _ string) (int, error) {
	return 0, m.err
}
