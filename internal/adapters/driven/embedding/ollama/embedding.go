// Package ollama embeds passages with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/folio/internal/adapters/driven/ollamahttp"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Defaults.
const (
	DefaultBaseURL    = ollamahttp.DefaultBaseURL
	DefaultModel      = "nomic-embed-text"
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = 768
)

// Config configures the Ollama embedder. Zero values take the defaults.
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	Dimensions int
}

// EmbeddingService generates embeddings through /api/embed.
//
// nomic-embed models are trained with task prefixes, so documents and
// questions are prefixed accordingly before they are sent.
type EmbeddingService struct {
	client      *ollamahttp.Client
	model       string
	dimensions  int
	docPrefix   string
	queryPrefix string
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// NewEmbeddingService creates an Ollama embedder.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	svc := &EmbeddingService{
		client:     ollamahttp.New(cfg.BaseURL, cfg.Timeout, domain.ErrEmbeddingUnavailable),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
	if strings.HasPrefix(cfg.Model, "nomic-embed") {
		svc.docPrefix = "search_document: "
		svc.queryPrefix = "search_query: "
	}
	return svc
}

// EmbedDocuments embeds passages in one request.
func (s *EmbeddingService) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	return s.embed(ctx, texts, s.docPrefix)
}

// EmbedQuery embeds a question.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.embed(ctx, []string{text}, s.queryPrefix)
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *EmbeddingService) embed(ctx context.Context, texts []string, prefix string) ([][]float32, error) {
	input := texts
	if prefix != "" {
		input = make([]string, len(texts))
		for i, t := range texts {
			input[i] = prefix + t
		}
	}

	var resp embedResponse
	if err := s.client.Post(ctx, "/api/embed", s.model, embedRequest{Model: s.model, Input: input}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama: expected %d embeddings, got %d", len(texts), len(resp.Embeddings))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, vec := range resp.Embeddings {
		v := make([]float32, len(vec))
		for j, x := range vec {
			v[j] = float32(x)
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns the vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the embedding model.
func (s *EmbeddingService) ModelName() string {
	return s.model
}

// Ping checks that the server answers.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx)
}

// Close is a no-op.
func (s *EmbeddingService) Close() error {
	return nil
}
