// Package anthropic generates answers with the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

// Defaults.
const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	anthropicVersion = "2023-06-01"

	// statusOverloaded is returned when the API is temporarily saturated.
	statusOverloaded = 529
)

// Config configures the Anthropic LLM. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService answers with one Messages call per question.
//
// The system prompt is identical across questions, so it is sent as a
// cacheable block.
type LLMService struct {
	client  *http.Client
	baseURL string
	apiKey  string
	model   string
}

type textBlock struct {
	Type         string        `json:"type"`
	Text         string        `json:"text"`
	CacheControl *cacheControl `json:"cache_control,omitempty"`
}

type cacheControl struct {
	Type string `json:"type"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string      `json:"model"`
	Messages    []message   `json:"messages"`
	MaxTokens   int         `json:"max_tokens"`
	System      []textBlock `json:"system,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
}

type messagesResponse struct {
	Content    []textBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
}

type errorEnvelope struct {
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// NewLLMService creates an Anthropic LLM.
func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &LLMService{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
	}, nil
}

// Generate sends prompt as a single user turn.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := messagesRequest{
		Model:     s.model,
		Messages:  []message{{Role: "user", Content: prompt}},
		MaxTokens: opts.MaxTokens,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	if opts.SystemPrompt != "" {
		req.System = []textBlock{{
			Type:         "text",
			Text:         opts.SystemPrompt,
			CacheControl: &cacheControl{Type: "ephemeral"},
		}}
	}
	if opts.Temperature > 0 {
		t := opts.Temperature
		req.Temperature = &t
	}

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var resp messagesResponse
	if err := s.do(ctx, http.MethodPost, "/v1/messages", bytes.NewReader(body), &resp); err != nil {
		return "", err
	}

	if resp.StopReason == "max_tokens" {
		logger.Warn("anthropic: answer truncated at %d tokens", req.MaxTokens)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// ModelName returns the model.
func (s *LLMService) ModelName() string {
	return s.model
}

// Ping lists models, which checks the key without generating.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.do(ctx, http.MethodGet, "/v1/models", http.NoBody, nil)
}

// Close is a no-op.
func (s *LLMService) Close() error {
	return nil
}

// do performs one request and decodes a 200 reply into out when out is non-nil.
func (s *LLMService) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("anthropic: create request: %w", err)
	}
	req.Header.Set("x-api-key", s.apiKey)
	req.Header.Set("anthropic-version", anthropicVersion)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("anthropic: send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("anthropic: read response: %w", err)
	}
	if err := statusError(resp.StatusCode, data); err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError maps a non-200 reply onto the domain errors.
func statusError(status int, body []byte) error {
	if status == http.StatusOK {
		return nil
	}

	msg := strings.TrimSpace(string(body))
	var env errorEnvelope
	if json.Unmarshal(body, &env) == nil && env.Error != nil {
		msg = env.Error.Type + ": " + env.Error.Message
	}

	switch status {
	case http.StatusTooManyRequests:
		return fmt.Errorf("anthropic: %w: %s", domain.ErrRateLimited, msg)
	case statusOverloaded:
		return fmt.Errorf("anthropic: %w: %s", domain.ErrExternalService, msg)
	case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("anthropic: %w (status %d): %s", domain.ErrLLMUnavailable, status, msg)
	default:
		return fmt.Errorf("anthropic error (status %d): %s", status, msg)
	}
}
