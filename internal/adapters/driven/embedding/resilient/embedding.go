// Package resilient wraps an EmbeddingService with batching, rate limiting,
// per-call timeouts and retry with exponential backoff.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Default configuration values.
const (
	DefaultMaxBatchSize = 96
	DefaultMaxRetries   = 3
	DefaultBaseBackoff  = 1 * time.Second
	DefaultMaxBackoff   = 16 * time.Second
	DefaultCallTimeout  = 60 * time.Second
)

// EmbeddingService decorates another EmbeddingService.
type EmbeddingService struct {
	next         driven.EmbeddingService
	limiter      *rate.Limiter
	maxBatchSize int
	maxRetries   int
	baseBackoff  time.Duration
	maxBackoff   time.Duration
	callTimeout  time.Duration
}

// Option configures the decorator.
type Option func(*EmbeddingService)

// WithMaxBatchSize sets the maximum number of texts sent per request.
func WithMaxBatchSize(n int) Option {
	return func(s *EmbeddingService) {
		if n > 0 {
			s.maxBatchSize = n
		}
	}
}

// WithMaxRetries sets how many times a failed request is retried.
func WithMaxRetries(n int) Option {
	return func(s *EmbeddingService) {
		if n >= 0 {
			s.maxRetries = n
		}
	}
}

// WithBackoff sets the first retry delay and the cap it doubles up to.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(s *EmbeddingService) {
		if base > 0 {
			s.baseBackoff = base
		}
		if maxDelay >= base {
			s.maxBackoff = maxDelay
		}
	}
}

// WithCallTimeout bounds each provider request.
func WithCallTimeout(d time.Duration) Option {
	return func(s *EmbeddingService) {
		if d > 0 {
			s.callTimeout = d
		}
	}
}

// WithRateLimit limits provider requests per second. Zero disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(s *EmbeddingService) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = nil
		}
	}
}

// New wraps next.
func New(next driven.EmbeddingService, opts ...Option) *EmbeddingService {
	s := &EmbeddingService{
		next:         next,
		maxBatchSize: DefaultMaxBatchSize,
		maxRetries:   DefaultMaxRetries,
		baseBackoff:  DefaultBaseBackoff,
		maxBackoff:   DefaultMaxBackoff,
		callTimeout:  DefaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RateLimit returns the request-per-second cap, or zero when unthrottled.
func (s *EmbeddingService) RateLimit() float64 {
	if s.limiter == nil {
		return 0
	}
	return float64(s.limiter.Limit())
}

// EmbedDocuments embeds texts in batches. Any batch failure fails the call.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.maxBatchSize {
		end := min(start+s.maxBatchSize, len(texts))
		batch := texts[start:end]

		var vectors [][]float32
		err := s.do(ctx, func(callCtx context.Context) error {
			var err error
			vectors, err = s.next.EmbedDocuments(callCtx, batch)
			if err == nil && len(vectors) != len(batch) {
				err = fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vectors))
			}
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("embedding texts %d-%d: %w", start, end-1, err)
		}

		logger.Debug("Embedded batch %d-%d of %d", start, end-1, len(texts))
		embeddings = append(embeddings, vectors...)
	}

	return embeddings, nil
}

// EmbedQuery embeds a single question.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var vector []float32
	err := s.do(ctx, func(callCtx context.Context) error {
		var err error
		vector, err = s.next.EmbedQuery(callCtx, text)
		if err == nil && len(vector) == 0 {
			err = errors.New("empty query embedding")
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vector, nil
}

// do runs call with a per-attempt timeout, retrying transient failures.
func (s *EmbeddingService) do(ctx context.Context, call func(context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := s.backoff(attempt)
			logger.Warn("Embedding request failed (attempt %d/%d), retrying in %s: %v",
				attempt, s.maxRetries+1, delay, lastErr)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, s.callTimeout)
		err := call(callCtx)
		cancel()
		if err == nil {
			return nil
		}

		// Cancellation by the caller is returned as is.
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !retryable(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: %w", domain.ErrExternalService, lastErr)
}

// backoff returns base * 2^(attempt-1), capped.
func (s *EmbeddingService) backoff(attempt int) time.Duration {
	delay := s.baseBackoff
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= s.maxBackoff {
			return s.maxBackoff
		}
	}
	return min(delay, s.maxBackoff)
}

// retryable reports whether repeating the request could help.
// Bad credentials and bad input will fail the same way again.
func retryable(err error) bool {
	switch {
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service without retrying.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close closes the wrapped service.
func (s *EmbeddingService) Close() error {
	return s.next.Close()
}
