// Package ollama generates answers with a local Ollama model.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/folio/internal/adapters/driven/ollamahttp"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults.
const (
	DefaultBaseURL    = ollamahttp.DefaultBaseURL
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig configures the Ollama LLM. Zero values take the defaults.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// ContextWindow overrides the model's num_ctx. Ollama defaults to a
	// small window that truncates long retrieved contexts silently.
	ContextWindow int
}

// LLMService answers through a non-streaming /api/chat call.
type LLMService struct {
	client        *ollamahttp.Client
	model         string
	contextWindow int
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type modelOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	NumCtx      int      `json:"num_ctx,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *modelOptions `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewLLMService creates an Ollama LLM.
func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		client:        ollamahttp.New(cfg.BaseURL, cfg.Timeout, domain.ErrLLMUnavailable),
		model:         cfg.Model,
		contextWindow: cfg.ContextWindow,
	}
}

// Generate sends the system prompt, when set, and the user prompt.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatRequest{Model: s.model, Messages: make([]chatMessage, 0, 2)}
	if opts.SystemPrompt != "" {
		req.Messages = append(req.Messages, chatMessage{Role: "system", Content: opts.SystemPrompt})
	}
	req.Messages = append(req.Messages, chatMessage{Role: "user", Content: prompt})
	req.Options = s.options(opts)

	var resp chatResponse
	if err := s.client.Post(ctx, "/api/chat", s.model, req, &resp); err != nil {
		return "", err
	}
	if !resp.Done && resp.Message.Content == "" {
		return "", fmt.Errorf("ollama: incomplete response from %s", s.model)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// options returns nil when nothing overrides the model defaults.
func (s *LLMService) options(opts driven.GenerateOptions) *modelOptions {
	if opts.MaxTokens <= 0 && opts.Temperature <= 0 && s.contextWindow <= 0 {
		return nil
	}
	o := &modelOptions{NumPredict: opts.MaxTokens, NumCtx: s.contextWindow}
	if opts.Temperature > 0 {
		t := opts.Temperature
		o.Temperature = &t
	}
	return o
}

// ModelName returns the chat model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping checks that the server answers.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}
