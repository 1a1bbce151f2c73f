package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// The same instance must be used for ingestion and for queries: vectors from
// different models are not comparable, and the index records the model name
// to reject mixing.
//
// Implementations may include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large)
//   - Cohere (embed-english-v3.0)
//   - Ollama (nomic-embed-text, all-minilm)
type EmbeddingService interface {
	// EmbedDocuments generates embeddings for document passages.
	// The result has one vector per input, in input order.
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)

	// EmbedQuery generates an embedding for a search question.
	// Providers with asymmetric models embed queries differently from documents.
	EmbedQuery(ctx context.Context, text string) ([]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1024, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
