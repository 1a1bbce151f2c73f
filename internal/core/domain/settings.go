package domain

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"

	// AIProviderCohere is Cohere cloud API (embeddings only).
	AIProviderCohere AIProvider = "cohere"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic, AIProviderCohere:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic || p == AIProviderCohere
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// SupportsEmbeddings returns true if the provider offers an embedding API.
func (p AIProvider) SupportsEmbeddings() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderCohere
}

// SupportsLLM returns true if the provider offers text generation.
func (p AIProvider) SupportsLLM() bool {
	return p == AIProviderOllama || p == AIProviderOpenAI || p == AIProviderAnthropic
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	case AIProviderCohere:
		return "Cohere (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible gateways).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string

	// RateLimit caps embedding requests per second. Zero uses the
	// provider's default from DefaultEmbeddingRateLimits.
	RateLimit float64
}

// RequestsPerSecond returns the configured rate limit, or the provider default.
func (e EmbeddingSettings) RequestsPerSecond() float64 {
	if e.RateLimit > 0 {
		return e.RateLimit
	}
	return DefaultEmbeddingRateLimits()[e.Provider]
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() || !e.Provider.SupportsEmbeddings() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama or compatible gateways).
	BaseURL string

	// APIKey is the API key (for cloud providers).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() || !l.Provider.SupportsLLM() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// RetrievalSettings controls chunking and query-time retrieval.
type RetrievalSettings struct {
	// TopK is the number of passages retrieved per question.
	TopK int

	// MinScore is the similarity floor. Zero disables it.
	MinScore float64

	// ChunkSize is the chunk window in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive windows in characters.
	ChunkOverlap int

	// MaxContextTokens bounds the passages placed in the prompt.
	MaxContextTokens int
}

// Validate checks retrieval settings for consistency.
func (r RetrievalSettings) Validate() error {
	switch {
	case r.TopK <= 0:
		return ErrInvalidInput
	case r.MinScore < -1 || r.MinScore > 1:
		return ErrInvalidInput
	case r.ChunkSize <= 0 || r.ChunkOverlap < 0 || r.ChunkOverlap >= r.ChunkSize:
		return ErrInvalidInput
	case r.MaxContextTokens <= 0:
		return ErrInvalidInput
	}
	return nil
}

// AppSettings holds all application settings.
type AppSettings struct {
	// Embedding holds embedding provider settings.
	Embedding EmbeddingSettings

	// LLM holds LLM provider settings.
	LLM LLMSettings

	// Retrieval holds chunking and retrieval settings.
	Retrieval RetrievalSettings

	// UserID is the default conversation owner for local use.
	UserID string
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; users set them up via the settings wizard.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		Retrieval: RetrievalSettings{
			TopK:             DefaultTopK,
			MinScore:         0,
			ChunkSize:        1000,
			ChunkOverlap:     200,
			MaxContextTokens: 6000,
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderCohere,
		AIProviderOllama,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOpenAI,
		AIProviderAnthropic,
		AIProviderOllama,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
		AIProviderCohere: "embed-english-v3.0",
	}
}

// DefaultEmbeddingRateLimits returns request-per-second caps sized to each
// provider's entry-tier quota.
func DefaultEmbeddingRateLimits() map[AIProvider]float64 {
	return map[AIProvider]float64{
		AIProviderOllama: 20,
		AIProviderOpenAI: 50,
		AIProviderCohere: 1.5,
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
		// Cohere models
		"embed-english-v3.0":       1024,
		"embed-multilingual-v3.0":  1024,
		"embed-english-light-v3.0": 384,
	}
}
