package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/folio/internal/adapters/driven/embedding/cached"
	cohereembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/cohere"
	ollamaembed "github.com/custodia-labs/folio/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/folio/internal/adapters/driven/embedding/resilient"
	anthropicllm "github.com/custodia-labs/folio/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/folio/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/folio/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/folio/internal/core/domain"
)

func TestServices_Close(t *testing.T) {
	t.Run("close with nil services", func(t *testing.T) {
		s := &Services{}
		s.Close()
	})

	t.Run("close with services", func(t *testing.T) {
		s := &Services{
			Embedding: ollamaembed.NewEmbeddingService(ollamaembed.Config{}),
			LLM:       ollamallm.NewLLMService(ollamallm.LLMConfig{}),
		}
		s.Close()
	})
}

func TestCreateEmbeddingService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.EmbeddingSettings
		wantErr     bool
		errContains string
		wantDims    int
	}{
		{
			name:        "nil settings",
			settings:    nil,
			wantErr:     true,
			errContains: "required",
		},
		{
			name: "ollama",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "nomic-embed-text",
			},
			wantDims: 768,
		},
		{
			name: "ollama unknown model falls back to default dimensions",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOllama,
				Model:    "custom-embedder",
			},
			wantDims: ollamaembed.DefaultDimensions,
		},
		{
			name: "openai",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderOpenAI,
				APIKey:   "sk-test",
				Model:    "text-embedding-3-large",
			},
			wantDims: 3072,
		},
		{
			name: "cohere",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderCohere,
				APIKey:   "co-test",
				Model:    "embed-english-light-v3.0",
			},
			wantDims: 384,
		},
		{
			name: "cohere without key",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderCohere,
			},
			wantErr:     true,
			errContains: "API key",
		},
		{
			name: "anthropic has no embeddings",
			settings: &domain.EmbeddingSettings{
				Provider: domain.AIProviderAnthropic,
				APIKey:   "key",
			},
			wantErr:     true,
			errContains: "does not support embeddings",
		},
		{
			name: "unknown provider",
			settings: &domain.EmbeddingSettings{
				Provider: "mystery",
			},
			wantErr:     true,
			errContains: "unsupported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateEmbeddingService(tt.settings, EmbeddingOptions{RateLimit: 10})
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()

			assert.IsType(t, &cached.EmbeddingService{}, svc)
			assert.Equal(t, tt.wantDims, svc.Dimensions())
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

func TestCreateProviderEmbedding_Cohere(t *testing.T) {
	svc, err := createProviderEmbedding(&domain.EmbeddingSettings{
		Provider: domain.AIProviderCohere,
		APIKey:   "co-test",
	})
	require.NoError(t, err)
	assert.IsType(t, &cohereembed.EmbeddingService{}, svc)
	assert.Equal(t, cohereembed.DefaultModel, svc.ModelName())
}

func TestCreateLLMService(t *testing.T) {
	tests := []struct {
		name        string
		settings    *domain.LLMSettings
		wantType    any
		errContains string
	}{
		{
			name:        "nil settings",
			errContains: "required",
		},
		{
			name:     "ollama",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOllama, Model: "llama3.2"},
			wantType: &ollamallm.LLMService{},
		},
		{
			name:     "openai",
			settings: &domain.LLMSettings{Provider: domain.AIProviderOpenAI, APIKey: "sk", Model: "gpt-4o-mini"},
			wantType: &openaillm.LLMService{},
		},
		{
			name:     "anthropic",
			settings: &domain.LLMSettings{Provider: domain.AIProviderAnthropic, APIKey: "sk", Model: "claude"},
			wantType: &anthropicllm.LLMService{},
		},
		{
			name:        "openai without key",
			settings:    &domain.LLMSettings{Provider: domain.AIProviderOpenAI},
			errContains: "API key",
		},
		{
			name:        "cohere has no generation",
			settings:    &domain.LLMSettings{Provider: domain.AIProviderCohere, APIKey: "co"},
			errContains: "does not support text generation",
		},
		{
			name:        "unknown provider",
			settings:    &domain.LLMSettings{Provider: "mystery"},
			errContains: "unsupported",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := CreateLLMService(tt.settings)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.wantType, svc)
			assert.Equal(t, tt.settings.Model, svc.ModelName())
		})
	}
}

// rateLimitOf digs the limiter setting out of the decorator chain.
func rateLimitOf(t *testing.T, svc any) float64 {
	t.Helper()
	outer, ok := svc.(*cached.EmbeddingService)
	require.True(t, ok, "expected the query cache outermost")
	inner, ok := outer.Unwrap().(*resilient.EmbeddingService)
	require.True(t, ok, "expected the retry decorator under the cache")
	return inner.RateLimit()
}

func TestCreateEmbeddingService_RateLimit(t *testing.T) {
	t.Run("provider default", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider: domain.AIProviderCohere,
			APIKey:   "co-test",
		}, EmbeddingOptions{})
		require.NoError(t, err)
		defer svc.Close()

		assert.InDelta(t, domain.DefaultEmbeddingRateLimits()[domain.AIProviderCohere], rateLimitOf(t, svc), 1e-9)
	})

	t.Run("settings override", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:  domain.AIProviderOllama,
			RateLimit: 7,
		}, EmbeddingOptions{})
		require.NoError(t, err)
		defer svc.Close()

		assert.InDelta(t, 7.0, rateLimitOf(t, svc), 1e-9)
	})

	t.Run("option wins over settings", func(t *testing.T) {
		svc, err := CreateEmbeddingService(&domain.EmbeddingSettings{
			Provider:  domain.AIProviderOllama,
			RateLimit: 7,
		}, EmbeddingOptions{RateLimit: 2})
		require.NoError(t, err)
		defer svc.Close()

		assert.InDelta(t, 2.0, rateLimitOf(t, svc), 1e-9)
	})
}
