package driven

import "github.com/custodia-labs/folio/internal/core/domain"

// AIConfigValidator checks provider settings before the settings service saves them.
// Settings that are not configured are valid.
type AIConfigValidator interface {
	// ValidateEmbedding reports an unreachable provider, a rejected key, or
	// domain.ErrModelMismatch when the model differs from the indexed one.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM reports an unreachable provider or a rejected key.
	ValidateLLM(config *domain.LLMSettings) error
}
