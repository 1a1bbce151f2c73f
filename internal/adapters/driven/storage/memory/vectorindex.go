package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory implementation of driven.VectorIndex.
// Search is a brute-force scan, so results are exact.
type VectorIndex struct {
	mu        sync.RWMutex
	model     string
	dims      int
	entries   []domain.IndexEntry
	norms     []float64
	documents map[string]int
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{
		documents: make(map[string]int),
	}
}

// Validate checks entries against the index without mutating it.
func (v *VectorIndex) Validate(model string, entries []domain.IndexEntry) error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.validateLocked(model, entries)
}

func (v *VectorIndex) validateLocked(model string, entries []domain.IndexEntry) error {
	if model == "" {
		return fmt.Errorf("%w: model is required", domain.ErrInvalidInput)
	}
	if len(entries) == 0 {
		return nil
	}

	dims := v.dims
	if len(v.entries) > 0 && model != v.model {
		return fmt.Errorf("%w: index built with %q, got %q", domain.ErrModelMismatch, v.model, model)
	}
	if len(v.entries) == 0 {
		dims = len(entries[0].Embedding)
		if dims == 0 {
			return fmt.Errorf("%w: empty embedding", domain.ErrDimensionMismatch)
		}
	}

	for i := range entries {
		if len(entries[i].Embedding) != dims {
			return fmt.Errorf("%w: entry %s has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, entries[i].Chunk.ID, len(entries[i].Embedding), dims)
		}
		if entries[i].Chunk.Content == "" {
			return fmt.Errorf("%w: entry %s has no content", domain.ErrInvalidInput, entries[i].Chunk.ID)
		}
	}
	return nil
}

// Insert appends entries. Either all entries are added or none.
func (v *VectorIndex) Insert(_ context.Context, model string, entries []domain.IndexEntry) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.validateLocked(model, entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	if len(v.entries) == 0 {
		v.model = model
		v.dims = len(entries[0].Embedding)
	}
	for i := range entries {
		embedding := make([]float32, len(entries[i].Embedding))
		copy(embedding, entries[i].Embedding)
		v.entries = append(v.entries, domain.IndexEntry{Chunk: entries[i].Chunk, Embedding: embedding})
		v.norms = append(v.norms, norm(embedding))
		v.documents[entries[i].Chunk.Document]++
	}
	return nil
}

// Search returns the k entries most similar to query.
func (v *VectorIndex) Search(_ context.Context, query []float32, k int) ([]domain.ScoredEntry, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	if len(v.entries) == 0 {
		return []domain.ScoredEntry{}, nil
	}
	if len(query) != v.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrDimensionMismatch, len(query), v.dims)
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}

	queryNorm := norm(query)
	scored := make([]domain.ScoredEntry, len(v.entries))
	for i := range v.entries {
		scored[i] = domain.ScoredEntry{
			Entry: v.entries[i],
			Score: cosine(query, queryNorm, v.entries[i].Embedding, v.norms[i]),
		}
	}

	// Stable keeps insertion order for equal scores.
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	for i := range scored {
		embedding := make([]float32, len(scored[i].Entry.Embedding))
		copy(embedding, scored[i].Entry.Embedding)
		scored[i].Entry.Embedding = embedding
	}
	return scored, nil
}

// Clear removes all entries and the recorded model.
func (v *VectorIndex) Clear(_ context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.model = ""
	v.dims = 0
	v.entries = nil
	v.norms = nil
	v.documents = make(map[string]int)
	return nil
}

// Info returns index metadata.
func (v *VectorIndex) Info(_ context.Context) (domain.IndexInfo, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return domain.IndexInfo{
		Model:      v.model,
		Dimensions: v.dims,
		Entries:    len(v.entries),
		Documents:  len(v.documents),
	}, nil
}

// Close is a no-op for the memory index.
func (v *VectorIndex) Close() error {
	return nil
}

func norm(vec []float32) float64 {
	var sum float64
	for _, x := range vec {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// cosine returns 0 when either vector has zero magnitude.
func cosine(a []float32, normA float64, b []float32, normB float64) float64 {
	if normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}
