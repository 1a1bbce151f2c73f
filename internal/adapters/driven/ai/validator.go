package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator checks provider settings before they are saved.
//
// With an index attached, an embedding model that differs from the one the
// index was built with is rejected with domain.ErrModelMismatch, since every
// later question would fail until the index is cleared.
type ConfigValidator struct {
	index   driven.VectorIndex
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithIndex makes embedding validation compare against the persisted index.
func WithIndex(index driven.VectorIndex) ValidatorOption {
	return func(v *ConfigValidator) {
		v.index = index
	}
}

// WithPingTimeout bounds each provider ping.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator creates a validator.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: pingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding checks index compatibility, then pings the provider.
// Unconfigured settings are valid.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()

	if err := v.checkIndexModel(ctx, embeddingModel(config)); err != nil {
		return err
	}

	svc, err := createProviderEmbedding(config)
	if err != nil {
		return err
	}
	defer svc.Close()
	return svc.Ping(ctx)
}

// ValidateLLM pings the configured LLM provider. Unconfigured settings are valid.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}

func (v *ConfigValidator) checkIndexModel(ctx context.Context, model string) error {
	if v.index == nil {
		return nil
	}
	info, err := v.index.Info(ctx)
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}
	if info.IsEmpty() || info.Model == model {
		return nil
	}
	return fmt.Errorf("%w: index holds %d passages embedded with %s, not %s; run 'folio index clear' first",
		domain.ErrModelMismatch, info.Entries, info.Model, model)
}

// embeddingModel resolves the model the provider will actually use.
func embeddingModel(config *domain.EmbeddingSettings) string {
	if config.Model != "" {
		return config.Model
	}
	return domain.DefaultEmbeddingModels()[config.Provider]
}
