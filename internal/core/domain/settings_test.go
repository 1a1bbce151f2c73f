package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAIProvider_IsValid(t *testing.T) {
	tests := []struct {
		name     string
		provider AIProvider
		expected bool
	}{
		{"ollama is valid", AIProviderOllama, true},
		{"openai is valid", AIProviderOpenAI, true},
		{"anthropic is valid", AIProviderAnthropic, true},
		{"cohere is valid", AIProviderCohere, true},
		{"empty is invalid", AIProvider(""), false},
		{"unknown is invalid", AIProvider("mistral"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.provider.IsValid())
		})
	}
}

func TestAIProvider_Capabilities(t *testing.T) {
	assert.True(t, AIProviderCohere.SupportsEmbeddings())
	assert.False(t, AIProviderCohere.SupportsLLM())
	assert.False(t, AIProviderAnthropic.SupportsEmbeddings())
	assert.True(t, AIProviderAnthropic.SupportsLLM())
	assert.True(t, AIProviderOllama.IsLocal())
	assert.False(t, AIProviderOllama.RequiresAPIKey())
	assert.True(t, AIProviderOpenAI.RequiresAPIKey())
}

func TestAIProvider_Description(t *testing.T) {
	assert.Equal(t, "Cohere (cloud)", AIProviderCohere.Description())
	assert.Equal(t, "Unknown", AIProvider("x").Description())
}

func TestEmbeddingSettings_IsConfigured(t *testing.T) {
	tests := []struct {
		name     string
		settings EmbeddingSettings
		expected bool
	}{
		{"empty", EmbeddingSettings{}, false},
		{"ollama without key", EmbeddingSettings{Provider: AIProviderOllama}, true},
		{"openai without key", EmbeddingSettings{Provider: AIProviderOpenAI}, false},
		{"openai with key", EmbeddingSettings{Provider: AIProviderOpenAI, APIKey: "k"}, true},
		{"anthropic cannot embed", EmbeddingSettings{Provider: AIProviderAnthropic, APIKey: "k"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.settings.IsConfigured())
		})
	}
}

func TestLLMSettings_IsConfigured(t *testing.T) {
	assert.False(t, LLMSettings{}.IsConfigured())
	assert.False(t, LLMSettings{Provider: AIProviderCohere, APIKey: "k"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderAnthropic, APIKey: "k"}.IsConfigured())
	assert.True(t, LLMSettings{Provider: AIProviderOllama}.IsConfigured())
}

func TestDefaultAppSettings(t *testing.T) {
	s := DefaultAppSettings()

	assert.False(t, s.Embedding.IsConfigured())
	assert.False(t, s.LLM.IsConfigured())
	assert.Equal(t, 4, s.Retrieval.TopK)
	assert.Equal(t, 1000, s.Retrieval.ChunkSize)
	assert.Equal(t, 200, s.Retrieval.ChunkOverlap)
	require.NoError(t, s.Retrieval.Validate())
}

func TestRetrievalSettings_Validate(t *testing.T) {
	base := DefaultAppSettings().Retrieval

	tests := []struct {
		name   string
		mutate func(*RetrievalSettings)
	}{
		{"zero top k", func(r *RetrievalSettings) { r.TopK = 0 }},
		{"min score above one", func(r *RetrievalSettings) { r.MinScore = 1.5 }},
		{"overlap equals size", func(r *RetrievalSettings) { r.ChunkOverlap = r.ChunkSize }},
		{"negative overlap", func(r *RetrievalSettings) { r.ChunkOverlap = -1 }},
		{"zero context budget", func(r *RetrievalSettings) { r.MaxContextTokens = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := base
			tt.mutate(&r)
			assert.ErrorIs(t, r.Validate(), ErrInvalidInput)
		})
	}
}

func TestEmbeddingDimensions_KnownModels(t *testing.T) {
	dims := EmbeddingDimensions()
	assert.Equal(t, 1536, dims["text-embedding-3-small"])
	assert.Equal(t, 1024, dims["embed-english-v3.0"])
	assert.Equal(t, 768, dims["nomic-embed-text"])
}

func TestDefaultModels_CoverProviders(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.NotEmpty(t, DefaultEmbeddingModels()[p], p)
	}
	for _, p := range AllLLMProviders() {
		assert.NotEmpty(t, DefaultLLMModels()[p], p)
	}
}

func TestEmbeddingSettings_RequestsPerSecond(t *testing.T) {
	for _, p := range AllEmbeddingProviders() {
		assert.Positive(t, EmbeddingSettings{Provider: p}.RequestsPerSecond(), p)
	}

	assert.InDelta(t, 50.0, EmbeddingSettings{Provider: AIProviderOpenAI}.RequestsPerSecond(), 1e-9)
	assert.InDelta(t, 3.0, EmbeddingSettings{Provider: AIProviderOpenAI, RateLimit: 3}.RequestsPerSecond(), 1e-9)
	assert.Zero(t, EmbeddingSettings{Provider: "mystery"}.RequestsPerSecond())
}
