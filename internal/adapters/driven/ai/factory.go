// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"fmt"
	"time"

	"github.com/custodia-labs/folio/internal/adapters/driven/embedding/cached"
	cohereembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/cohere"
	ollamaembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/folio/internal/adapters/driven/embedding/resilient"
	anthropicllm "github.com/custodia-labs/folio/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/folio/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/folio/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// ollamaContextWindow fits the largest retrieved context plus the question and answer.
const ollamaContextWindow = 8192

// Services holds the AI adapters used by the retrieval pipeline.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		_ = s.Embedding.Close()
	}
	if s.LLM != nil {
		_ = s.LLM.Close()
	}
}

// EmbeddingOptions tune the decorators wrapped around a provider embedder.
type EmbeddingOptions struct {
	// RateLimit caps provider calls per second. Zero uses the settings'
	// limit, which itself falls back to the provider default.
	RateLimit float64

	// CacheSize is the number of query embeddings kept. Zero uses cached.DefaultSize.
	CacheSize int

	// Resilient holds extra options for the retry decorator.
	Resilient []resilient.Option
}

// CreateEmbeddingService creates the provider embedder named by settings and
// wraps it in the retry and query-cache decorators.
func CreateEmbeddingService(settings *domain.EmbeddingSettings, opts EmbeddingOptions) (driven.EmbeddingService, error) {
	if settings == nil {
		return nil, fmt.Errorf("embedding settings are required")
	}

	base, err := createProviderEmbedding(settings)
	if err != nil {
		return nil, err
	}

	rateLimit := opts.RateLimit
	if rateLimit <= 0 {
		rateLimit = settings.RequestsPerSecond()
	}
	retryOpts := append([]resilient.Option{resilient.WithRateLimit(rateLimit)}, opts.Resilient...)

	size := opts.CacheSize
	if size <= 0 {
		size = cached.DefaultSize
	}
	svc, err := cached.New(resilient.New(base, retryOpts...), size)
	if err != nil {
		_ = base.Close()
		return nil, err
	}
	return svc, nil
}

// createProviderEmbedding creates the undecorated provider embedder.
func createProviderEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.Provider.SupportsEmbeddings() {
		if settings.Provider.IsValid() {
			return nil, fmt.Errorf("%s does not support embeddings, use openai, cohere or ollama", settings.Provider)
		}
		return nil, fmt.Errorf("unsupported embedding provider: %q", settings.Provider)
	}
	if settings.Provider.RequiresAPIKey() && settings.APIKey == "" {
		return nil, fmt.Errorf("%s requires an API key", settings.Provider)
	}

	dimensions := domain.EmbeddingDimensions()[settings.Model]

	switch settings.Provider {
	case domain.AIProviderOllama:
		if dimensions == 0 {
			dimensions = ollamaembed.DefaultDimensions
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})

	default:
		return cohereembed.NewEmbeddingService(cohereembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions,
		})
	}
}

// CreateLLMService creates the LLM service named by settings.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil {
		return nil, fmt.Errorf("LLM settings are required")
	}
	if !settings.Provider.SupportsLLM() {
		if settings.Provider.IsValid() {
			return nil, fmt.Errorf("%s does not support text generation, use openai, anthropic or ollama",
				settings.Provider)
		}
		return nil, fmt.Errorf("unsupported LLM provider: %q", settings.Provider)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.LLMConfig{
			BaseURL:       settings.BaseURL,
			Model:         settings.Model,
			ContextWindow: ollamaContextWindow,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.LLMConfig{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
	}
}
