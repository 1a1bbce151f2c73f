// Package cached memoises query embeddings in an LRU cache so repeated
// questions do not hit the provider again.
package cached

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultSize is the number of query embeddings kept.
const DefaultSize = 256

// EmbeddingService caches EmbedQuery results. Documents pass through.
type EmbeddingService struct {
	next  driven.EmbeddingService
	cache *lru.Cache[string, []float32]
}

// New wraps next with a cache of size entries. A size <= 0 uses DefaultSize.
func New(next driven.EmbeddingService, size int) (*EmbeddingService, error) {
	if size <= 0 {
		size = DefaultSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("creating query cache: %w", err)
	}
	return &EmbeddingService{next: next, cache: cache}, nil
}

// EmbedDocuments delegates without caching.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	return s.next.EmbedDocuments(ctx, texts)
}

// EmbedQuery returns a cached vector when the same text was embedded before.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := s.cache.Get(text); ok {
		logger.Debug("Query embedding cache hit")
		return clone(vec), nil
	}

	vec, err := s.next.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Add(text, clone(vec))
	return vec, nil
}

// Unwrap returns the decorated service.
func (s *EmbeddingService) Unwrap() driven.EmbeddingService {
	return s.next
}

// Len returns the number of cached queries.
func (s *EmbeddingService) Len() int {
	return s.cache.Len()
}

// Dimensions returns the wrapped service's vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.next.Dimensions()
}

// ModelName returns the wrapped service's model.
func (s *EmbeddingService) ModelName() string {
	return s.next.ModelName()
}

// Ping checks the wrapped service.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

// Close purges the cache and closes the wrapped service.
func (s *EmbeddingService) Close() error {
	s.cache.Purge()
	return s.next.Close()
}

func clone(vec []float32) []float32 {
	out := make([]float32, len(vec))
	copy(out, vec)
	return out
}
