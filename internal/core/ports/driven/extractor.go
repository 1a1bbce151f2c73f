package driven

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// PageExtractor pulls per-page plain text out of a document.
// Pages without a text layer are returned with empty Text.
type PageExtractor interface {
	// Extract returns the document pages in order.
	Extract(ctx context.Context, data []byte) ([]domain.Page, error)
}

// Chunker splits extracted pages into overlapping, page-attributed chunks.
type Chunker interface {
	// Chunk returns chunks in document order with increasing Index.
	Chunk(document string, pages []domain.Page) []domain.Chunk
}

// TokenCounter counts model tokens in text.
type TokenCounter interface {
	// Count returns the number of tokens in text.
	Count(text string) int
}
