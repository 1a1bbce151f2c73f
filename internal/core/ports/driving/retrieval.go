package driving

import (
	"context"

	"github.com/custodia-labs/folio/internal/core/domain"
)

// RetrievalService ingests PDFs and answers questions grounded in them.
type RetrievalService interface {
	// Ingest indexes up to domain.MaxUploadFiles PDFs. Validation failures
	// reject the whole call before anything is indexed.
	Ingest(ctx context.Context, files []domain.UploadedFile) (*domain.IngestResult, error)

	// Answer retrieves the top passages for question and generates an answer from them.
	Answer(ctx context.Context, question string, opts domain.RetrievalOptions) (*domain.Answer, error)

	// Retrieve returns the ranked passages for question without generating an answer.
	Retrieve(ctx context.Context, question string, opts domain.RetrievalOptions) ([]domain.SourceAttribution, error)

	// Stats returns index metadata.
	Stats(ctx context.Context) (domain.IndexInfo, error)

	// Clear empties the index.
	Clear(ctx context.Context) error
}
