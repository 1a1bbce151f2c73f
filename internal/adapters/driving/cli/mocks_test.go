package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/folio/internal/core/domain"
)

type mockRetrievalService struct {
	mu sync.Mutex

	ingested  []domain.UploadedFile
	lastQuery string
	lastOpts  domain.RetrievalOptions
	cleared   bool
	answer    *domain.Answer
	results   []domain.SourceAttribution
	info      domain.IndexInfo
	err       error
}

func (m *mockRetrievalService) Ingest(_ context.Context, files []domain.UploadedFile) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.ingested = files
	result := &domain.IngestResult{IndexedFiles: len(files)}
	for _, f := range files {
		result.Files = append(result.Files, domain.FileIngestResult{Name: f.Name, Pages: 1, Chunks: 2})
		result.IndexedChunks += 2
	}
	return result, nil
}

func (m *mockRetrievalService) Answer(
	_ context.Context, question string, opts domain.RetrievalOptions,
) (*domain.Answer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery, m.lastOpts = question, opts
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Text: "Paris.", Sources: []domain.SourceAttribution{
		{Document: "atlas.pdf", Page: 3, Snippet: "Paris is the capital", Score: 0.91},
	}}, nil
}

func (m *mockRetrievalService) Retrieve(
	_ context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.SourceAttribution, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastQuery, m.lastOpts = question, opts
	if m.err != nil {
		return nil, m.err
	}
	return m.results, nil
}

func (m *mockRetrievalService) Stats(context.Context) (domain.IndexInfo, error) {
	return m.info, m.err
}

func (m *mockRetrievalService) Clear(context.Context) error {
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

type mockConversationService struct {
	conversations map[string]*domain.Conversation
	lastOwner     string
	lastQuestion  string
	lastOpts      domain.RetrievalOptions
	err           error
}

func newMockConversationService() *mockConversationService {
	return &mockConversationService{conversations: make(map[string]*domain.Conversation)}
}

func (m *mockConversationService) get(id, owner string) (*domain.Conversation, error) {
	m.lastOwner = owner
	if m.err != nil {
		return nil, m.err
	}
	conv, ok := m.conversations[id]
	if !ok || conv.Owner != owner {
		return nil, domain.ErrNotFound
	}
	return conv, nil
}

func (m *mockConversationService) Create(_ context.Context, owner, title string) (*domain.Conversation, error) {
	m.lastOwner = owner
	if m.err != nil {
		return nil, m.err
	}
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	conv := &domain.Conversation{
		ID:    "conv-1",
		Owner: owner,
		Title: title,
	}
	m.conversations[conv.ID] = conv
	return conv, nil
}

func (m *mockConversationService) List(
	_ context.Context, owner string, opts domain.ListOptions,
) ([]domain.ConversationSummary, error) {
	m.lastOwner = owner
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.ConversationSummary
	for _, c := range m.conversations {
		if c.Owner == owner {
			out = append(out, domain.ConversationSummary{
				ID: c.ID, Title: c.Title, MessageCount: c.MessageCount, UpdatedAt: c.UpdatedAt,
			})
		}
	}
	if opts.Offset >= len(out) {
		return nil, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockConversationService) Get(_ context.Context, id, owner string) (*domain.Conversation, error) {
	return m.get(id, owner)
}

func (m *mockConversationService) AppendUserMessage(_ context.Context, id, owner, text string) error {
	conv, err := m.get(id, owner)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, domain.UserMessage{Text: text, CreatedAt: time.Now()})
	conv.MessageCount++
	return nil
}

func (m *mockConversationService) AppendAssistantMessage(
	_ context.Context, id, owner, text string, sources []domain.SourceAttribution,
) error {
	conv, err := m.get(id, owner)
	if err != nil {
		return err
	}
	conv.Messages = append(conv.Messages, domain.AssistantMessage{Text: text, Sources: sources, CreatedAt: time.Now()})
	conv.MessageCount++
	return nil
}

func (m *mockConversationService) Ask(
	ctx context.Context, id, owner, question string, opts domain.RetrievalOptions,
) (*domain.Answer, error) {
	m.lastQuestion, m.lastOpts = question, opts
	if _, err := m.get(id, owner); err != nil {
		return nil, err
	}
	answer := &domain.Answer{Text: "From the chat.", Sources: []domain.SourceAttribution{{Document: "atlas.pdf", Page: 1}}}
	if err := m.AppendUserMessage(ctx, id, owner, question); err != nil {
		return nil, err
	}
	if err := m.AppendAssistantMessage(ctx, id, owner, answer.Text, answer.Sources); err != nil {
		return nil, err
	}
	return answer, nil
}

func (m *mockConversationService) Rename(_ context.Context, id, owner, title string) error {
	conv, err := m.get(id, owner)
	if err != nil {
		return err
	}
	conv.Title = title
	return nil
}

func (m *mockConversationService) Delete(_ context.Context, id, owner string) error {
	if _, err := m.get(id, owner); err != nil {
		return err
	}
	delete(m.conversations, id)
	return nil
}

func (m *mockConversationService) DeleteAll(_ context.Context, owner string) (int, error) {
	m.lastOwner = owner
	n := 0
	for id, c := range m.conversations {
		if c.Owner == owner {
			delete(m.conversations, id)
			n++
		}
	}
	return n, nil
}

type mockSettingsService struct {
	settings    domain.AppSettings
	validateErr error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings()}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Save(settings *domain.AppSettings) error {
	m.settings = *settings
	return nil
}

func (m *mockSettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.Embedding.Provider = provider
	m.settings.Embedding.Model = model
	m.settings.Embedding.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	m.settings.LLM.Provider = provider
	m.settings.LLM.Model = model
	m.settings.LLM.APIKey = apiKey
	return nil
}

func (m *mockSettingsService) SetRetrieval(retrieval domain.RetrievalSettings) error {
	m.settings.Retrieval = retrieval
	return nil
}

func (m *mockSettingsService) Validate() error { return m.validateErr }

func (m *mockSettingsService) GetDefaults() domain.AppSettings { return domain.DefaultAppSettings() }

func (m *mockSettingsService) ValidateEmbeddingConfig() error { return nil }

func (m *mockSettingsService) ValidateLLMConfig() error { return nil }

type testServices struct {
	retrieval    *mockRetrievalService
	conversation *mockConversationService
	settings     *mockSettingsService
}

// setupTestServices installs fresh mock services and returns them with a cleanup func.
func setupTestServices() (*testServices, func()) {
	oldRetrieval, oldConversation, oldSettings := retrievalService, conversationService, settingsService

	ts := &testServices{
		retrieval:    &mockRetrievalService{},
		conversation: newMockConversationService(),
		settings:     newMockSettingsService(),
	}
	SetServices(Services{Retrieval: ts.retrieval, Conversation: ts.conversation, Settings: ts.settings})

	return ts, func() {
		retrievalService, conversationService, settingsService = oldRetrieval, oldConversation, oldSettings
	}
}

// resetFlags restores every flag of cmd and its children to its default.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// runCommand executes the root command with args and returns its output.
func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runCommandWithInput(t, "", args...)
}

// runCommandWithInput is runCommand with input as stdin.
func runCommandWithInput(t *testing.T, input string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}
