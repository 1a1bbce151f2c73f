package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string  `json:"question" jsonschema:"the question to answer from the indexed documents"`
	K              int     `json:"k,omitempty" jsonschema:"number of passages to retrieve (default 4)"`
	MinScore       float64 `json:"min_score,omitempty" jsonschema:"drop passages with similarity below this value"`
	ConversationID string  `json:"conversation_id,omitempty" jsonschema:"record the exchange in this conversation"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer  string                     `json:"answer"`
	Sources []domain.SourceAttribution `json:"sources"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query    string  `json:"query" jsonschema:"the text to find similar passages for"`
	Limit    int     `json:"limit,omitempty" jsonschema:"maximum number of passages to return (default 4)"`
	MinScore float64 `json:"min_score,omitempty" jsonschema:"drop passages with similarity below this value"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []domain.SourceAttribution `json:"results"`
	Count   int                        `json:"count"`
}

// ListConversationsInput is the input schema for the list_conversations tool.
type ListConversationsInput struct {
	Skip  int `json:"skip,omitempty" jsonschema:"number of conversations to skip"`
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of conversations (default 20)"`
}

// ConversationOutput summarises one conversation.
type ConversationOutput struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	URI          string `json:"uri"`
	MessageCount int    `json:"message_count"`
	LastMessage  string `json:"last_message,omitempty"`
	UpdatedAt    string `json:"updated_at"`
}

// ListConversationsOutput is the output schema for the list_conversations tool.
type ListConversationsOutput struct {
	Conversations []ConversationOutput `json:"conversations"`
	Count         int                  `json:"count"`
}

// CreateConversationInput is the input schema for the create_conversation tool.
type CreateConversationInput struct {
	Title string `json:"title,omitempty" jsonschema:"optional title of at most 200 characters; named after the first question when omitted"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Paths []string `json:"paths" jsonschema:"absolute paths of up to four local PDF files"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from the indexed PDF documents, citing document and page",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Return the indexed passages most similar to a query, without generating an answer",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest",
		Description: "Index up to four local PDF files",
	}, s.handleIngest)

	if s.ports.Conversation != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "list_conversations",
			Description: "List saved conversations, most recently updated first",
		}, s.handleListConversations)

		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "create_conversation",
			Description: "Start a conversation; pass its id to 'ask' to keep the exchange",
		}, s.handleCreateConversation)
	}
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.RetrievalOptions{K: input.K, MinScore: input.MinScore}

	var (
		answer *domain.Answer
		err    error
	)
	if input.ConversationID != "" {
		if s.ports.Conversation == nil {
			return nil, AskOutput{}, fmt.Errorf("%w: conversations are not enabled", domain.ErrInvalidInput)
		}
		answer, err = s.ports.Conversation.Ask(ctx, input.ConversationID, s.ports.Owner, input.Question, opts)
	} else {
		answer, err = s.ports.Retrieval.Answer(ctx, input.Question, opts)
	}
	if err != nil {
		return nil, AskOutput{}, toolError(err)
	}

	output := AskOutput{Answer: answer.Text, Sources: answer.Sources}
	if output.Sources == nil {
		output.Sources = []domain.SourceAttribution{}
	}
	return nil, output, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.RetrievalOptions{K: input.Limit, MinScore: input.MinScore}
	results, err := s.ports.Retrieval.Retrieve(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, toolError(err)
	}

	if results == nil {
		results = []domain.SourceAttribution{}
	}
	return nil, SearchOutput{Results: results, Count: len(results)}, nil
}

// handleIngest reads local files and indexes them.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, domain.IngestResult, error) {
	if len(input.Paths) > domain.MaxUploadFiles {
		return nil, domain.IngestResult{}, toolError(fmt.Errorf("%w: at most %d files per call, got %d",
			domain.ErrInvalidInput, domain.MaxUploadFiles, len(input.Paths)))
	}

	files := make([]domain.UploadedFile, 0, len(input.Paths))
	for _, path := range input.Paths {
		data, err := os.ReadFile(path)
		if err != nil {
			err = fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, path, err)
			return nil, domain.IngestResult{}, toolError(err)
		}
		files = append(files, domain.UploadedFile{Name: filepath.Base(path), Data: data})
	}

	result, err := s.ports.Retrieval.Ingest(ctx, files)
	if err != nil {
		return nil, domain.IngestResult{}, toolError(err)
	}
	return nil, *result, nil
}

// handleListConversations handles the list_conversations tool invocation.
func (s *Server) handleListConversations(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListConversationsInput,
) (*mcp.CallToolResult, ListConversationsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	summaries, err := s.ports.Conversation.List(ctx, s.ports.Owner,
		domain.ListOptions{Offset: input.Skip, Limit: limit})
	if err != nil {
		return nil, ListConversationsOutput{}, toolError(err)
	}

	output := ListConversationsOutput{
		Conversations: make([]ConversationOutput, len(summaries)),
		Count:         len(summaries),
	}
	for i := range summaries {
		output.Conversations[i] = ConversationOutput{
			ID:           summaries[i].ID,
			Title:        summaries[i].Title,
			URI:          conversationURI(summaries[i].ID),
			MessageCount: summaries[i].MessageCount,
			LastMessage:  summaries[i].LastMessage,
			UpdatedAt:    formatTime(summaries[i].UpdatedAt),
		}
	}
	return nil, output, nil
}

// handleCreateConversation handles the create_conversation tool invocation.
func (s *Server) handleCreateConversation(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input CreateConversationInput,
) (*mcp.CallToolResult, ConversationOutput, error) {
	conv, err := s.ports.Conversation.Create(ctx, s.ports.Owner, input.Title)
	if err != nil {
		return nil, ConversationOutput{}, toolError(err)
	}
	return nil, ConversationOutput{
		ID:        conv.ID,
		Title:     conv.Title,
		URI:       conversationURI(conv.ID),
		UpdatedAt: formatTime(conv.UpdatedAt),
	}, nil
}

// toolError appends the remedy for the error's class so the assistant can act on it.
func toolError(err error) error {
	if hint := domain.Classify(err).Hint(); hint != "" {
		return fmt.Errorf("%w (%s)", err, hint)
	}
	return err
}
