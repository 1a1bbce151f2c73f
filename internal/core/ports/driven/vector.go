package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// VectorIndex stores chunk embeddings and answers nearest-neighbour queries
// by exact cosine similarity.
//
// Mutations (Insert, Clear) are serialised against each other and against
// searches; a search never observes a partially applied insert.
type VectorIndex interface {
	// Insert appends entries atomically and durably.
	// The first insert into an empty index records model and dimension.
	// Returns domain.ErrModelMismatch or domain.ErrDimensionMismatch without
	// mutating anything when entries do not match the index.
	Insert(ctx context.Context, model string, entries []domain.IndexEntry) error

	// Search returns up to k entries by descending cosine similarity.
	// Ties keep insertion order. An empty index yields an empty result.
	Search(ctx context.Context, query []float32, k int) ([]domain.ScoredEntry, error)

	// Clear removes all entries and the recorded model.
	Clear(ctx context.Context) error

	// Info returns the index metadata and size.
	Info(ctx context.Context) (domain.IndexInfo, error)

	// Close releases resources.
	Close() error
}
