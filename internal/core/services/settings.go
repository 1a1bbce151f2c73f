package services

import (
	"fmt"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedRateLimit   = "embedding.rate_limit"
	keyLLMProvider      = "llm.provider"
	keyLLMModel         = "llm.model"
	keyLLMBaseURL       = "llm.base_url"
	keyLLMAPIKey        = "llm.api_key"
	keyTopK             = "retrieval.top_k"
	keyMinScore         = "retrieval.min_score"
	keyChunkSize        = "retrieval.chunk_size"
	keyChunkOverlap     = "retrieval.chunk_overlap"
	keyMaxContextTokens = "retrieval.max_context_tokens"
	keyUserID           = "user.id"
)

// defaultOllamaURL is filled in for local providers without a base URL.
const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
	}
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:  s.getProvider(keyEmbedProvider, defaults.Embedding.Provider),
			Model:     s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:   s.configStore.GetString(keyEmbedBaseURL), // No default - empty is valid for cloud providers
			APIKey:    s.configStore.GetString(keyEmbedAPIKey),
			RateLimit: max(s.configStore.GetFloat(keyEmbedRateLimit), 0), // Zero uses the provider default
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, defaults.LLM.Provider),
			Model:    s.getString(keyLLMModel, defaults.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:             s.getInt(keyTopK, defaults.Retrieval.TopK),
			MinScore:         s.configStore.GetFloat(keyMinScore),
			ChunkSize:        s.getInt(keyChunkSize, defaults.Retrieval.ChunkSize),
			ChunkOverlap:     s.getInt(keyChunkOverlap, defaults.Retrieval.ChunkOverlap),
			MaxContextTokens: s.getInt(keyMaxContextTokens, defaults.Retrieval.MaxContextTokens),
		},
		UserID: s.configStore.GetString(keyUserID),
	}

	if settings.Retrieval.Validate() != nil {
		settings.Retrieval = defaults.Retrieval
	}

	return settings, nil
}

// Save persists application settings.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if err := settings.Retrieval.Validate(); err != nil {
		return fmt.Errorf("retrieval settings: %w", err)
	}

	type setting struct {
		key   string
		value any
	}
	values := []setting{
		{keyEmbedProvider, settings.Embedding.Provider.String()},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedRateLimit, settings.Embedding.RateLimit},
		{keyLLMProvider, settings.LLM.Provider.String()},
		{keyLLMModel, settings.LLM.Model},
		{keyLLMBaseURL, settings.LLM.BaseURL},
		{keyTopK, settings.Retrieval.TopK},
		{keyMinScore, settings.Retrieval.MinScore},
		{keyChunkSize, settings.Retrieval.ChunkSize},
		{keyChunkOverlap, settings.Retrieval.ChunkOverlap},
		{keyMaxContextTokens, settings.Retrieval.MaxContextTokens},
	}

	// Empty values are not written so environment fallbacks keep applying.
	if settings.Embedding.APIKey != "" {
		values = append(values, setting{keyEmbedAPIKey, settings.Embedding.APIKey})
	}
	if settings.LLM.APIKey != "" {
		values = append(values, setting{keyLLMAPIKey, settings.LLM.APIKey})
	}
	if settings.UserID != "" {
		values = append(values, setting{keyUserID, settings.UserID})
	}

	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// Changing the embedding model invalidates an existing index; callers
// should clear it before ingesting again.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsEmbeddings() {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	if settings.Embedding.Provider != provider {
		// Limits are per provider.
		settings.Embedding.RateLimit = 0
	}
	settings.Embedding.Provider = provider
	settings.Embedding.Model = modelOrDefault(model, domain.DefaultEmbeddingModels()[provider])
	settings.Embedding.BaseURL = baseURLFor(provider, settings.Embedding.BaseURL)
	settings.Embedding.APIKey = apiKey

	return s.Save(settings)
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if !provider.SupportsLLM() {
		return fmt.Errorf("%w: provider %s does not support text generation", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	settings.LLM.Provider = provider
	settings.LLM.Model = modelOrDefault(model, domain.DefaultLLMModels()[provider])
	settings.LLM.BaseURL = baseURLFor(provider, settings.LLM.BaseURL)
	settings.LLM.APIKey = apiKey

	return s.Save(settings)
}

// SetRetrieval updates chunking and retrieval settings.
func (s *SettingsService) SetRetrieval(retrieval domain.RetrievalSettings) error {
	if err := retrieval.Validate(); err != nil {
		return fmt.Errorf("%w: top_k, chunk sizes and token budget must be positive, "+
			"overlap smaller than chunk size, min_score within [-1, 1]", err)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}
	settings.Retrieval = retrieval
	return s.Save(settings)
}

// Validate checks that both providers are configured.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if !settings.Embedding.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrEmbeddingUnavailable)
	}
	if !settings.LLM.IsConfigured() {
		return fmt.Errorf("%w: LLM provider is not configured", domain.ErrLLMUnavailable)
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func modelOrDefault(model, defaultModel string) string {
	if model != "" {
		return model
	}
	return defaultModel
}

// baseURLFor keeps a configured URL for local providers and clears it for cloud ones.
func baseURLFor(provider domain.AIProvider, current string) string {
	if !provider.IsLocal() {
		return ""
	}
	if current == "" {
		return defaultOllamaURL
	}
	return current
}
