package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
	"github.com/custodia-labs/folio/internal/core/ports/driving"
	"github.com/custodia-labs/folio/internal/logger"
)

// Ensure RetrievalPipeline implements the interface.
var _ driving.RetrievalService = (*RetrievalPipeline)(nil)

// Generation defaults for grounded answers.
const (
	DefaultTemperature      = 0.3
	DefaultMaxAnswerTokens  = 1024
	DefaultMaxContextTokens = 6000
)

// pdfMagic is the header every PDF file starts with.
var pdfMagic = []byte("%PDF-")

// noContextAnswer is returned without calling the LLM when the similarity
// floor removes every retrieved passage.
const noContextAnswer = "No passages in the indexed documents are relevant enough to answer this question."

// Fallback prompts used when no PromptStore is configured or it fails.
const (
	fallbackAnswerSystem = "Answer only from the provided context. " +
		"If the context does not contain the answer, say so. Cite the document and page you used."
	fallbackAnswerTemplate = "Context:\n%s\n\nQuestion: %s\n\nAnswer:"
)

// RetrievalPipeline ingests PDFs into the vector index and answers questions from it.
type RetrievalPipeline struct {
	extractor driven.PageExtractor
	chunker   driven.Chunker
	embedder  driven.EmbeddingService
	index     driven.VectorIndex
	llm       driven.LLMService
	prompts   driven.PromptStore
	tokens    driven.TokenCounter

	maxContextTokens int
	temperature      float64
	maxAnswerTokens  int
}

// RetrievalOption configures a RetrievalPipeline.
type RetrievalOption func(*RetrievalPipeline)

// WithPromptStore sets where answer prompts are loaded from.
func WithPromptStore(store driven.PromptStore) RetrievalOption {
	return func(p *RetrievalPipeline) {
		p.prompts = store
	}
}

// WithTokenCounter sets the counter used for the context budget.
func WithTokenCounter(counter driven.TokenCounter) RetrievalOption {
	return func(p *RetrievalPipeline) {
		if counter != nil {
			p.tokens = counter
		}
	}
}

// WithMaxContextTokens bounds the passages placed in the prompt.
func WithMaxContextTokens(n int) RetrievalOption {
	return func(p *RetrievalPipeline) {
		if n > 0 {
			p.maxContextTokens = n
		}
	}
}

// WithGeneration overrides the temperature and answer length.
func WithGeneration(temperature float64, maxTokens int) RetrievalOption {
	return func(p *RetrievalPipeline) {
		p.temperature = temperature
		if maxTokens > 0 {
			p.maxAnswerTokens = maxTokens
		}
	}
}

// NewRetrievalPipeline creates a retrieval pipeline.
// The embedder and llm parameters are optional (can be nil); operations
// that need a missing one fail with the matching unavailable error.
func NewRetrievalPipeline(
	extractor driven.PageExtractor,
	chunker driven.Chunker,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	llm driven.LLMService,
	opts ...RetrievalOption,
) *RetrievalPipeline {
	p := &RetrievalPipeline{
		extractor:        extractor,
		chunker:          chunker,
		embedder:         embedder,
		index:            index,
		llm:              llm,
		tokens:           runeEstimator{},
		maxContextTokens: DefaultMaxContextTokens,
		temperature:      DefaultTemperature,
		maxAnswerTokens:  DefaultMaxAnswerTokens,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Ingest extracts, chunks, embeds and indexes up to domain.MaxUploadFiles PDFs.
// Every file is validated and parsed before anything is embedded, and the
// index receives a single insert, so a failure leaves it unchanged.
func (p *RetrievalPipeline) Ingest(ctx context.Context, files []domain.UploadedFile) (*domain.IngestResult, error) {
	logger.Section("Ingest")
	start := time.Now()

	if err := validateUploads(files); err != nil {
		return nil, err
	}

	result := &domain.IngestResult{
		IndexedFiles: len(files),
		Files:        make([]domain.FileIngestResult, 0, len(files)),
	}

	var chunks []domain.Chunk
	for _, f := range files {
		pages, err := p.extractor.Extract(ctx, f.Data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f.Name, err)
		}

		fileChunks := p.chunker.Chunk(f.Name, pages)
		logger.Debug("%s: %d pages, %d chunks", f.Name, len(pages), len(fileChunks))

		result.Files = append(result.Files, domain.FileIngestResult{
			Name:   f.Name,
			Pages:  len(pages),
			Chunks: len(fileChunks),
		})
		chunks = append(chunks, fileChunks...)
	}

	if len(chunks) == 0 {
		logger.Info("No extractable text in %d file(s)", len(files))
		return result, nil
	}

	if p.embedder == nil {
		return nil, fmt.Errorf("%w: configure an embedding provider first", domain.ErrEmbeddingUnavailable)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed %d chunks: %w", len(texts), err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d chunks",
			domain.ErrExternalService, len(vectors), len(chunks))
	}

	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{Chunk: c, Embedding: vectors[i]}
	}

	if err := p.index.Insert(ctx, p.embedder.ModelName(), entries); err != nil {
		return nil, fmt.Errorf("index %d chunks: %w", len(entries), err)
	}

	result.IndexedChunks = len(entries)
	logger.Info("Indexed %d chunks from %d file(s)", result.IndexedChunks, result.IndexedFiles)
	logger.Elapsed("ingest", start)

	return result, nil
}

// Answer retrieves passages for question and asks the LLM to answer from them.
func (p *RetrievalPipeline) Answer(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) (*domain.Answer, error) {
	logger.Section("Answer")
	start := time.Now()

	hits, err := p.search(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		logger.Info("No passage scored above %.2f", opts.MinScore)
		return &domain.Answer{Text: noContextAnswer, Sources: []domain.SourceAttribution{}}, nil
	}

	if p.llm == nil {
		return nil, fmt.Errorf("%w: configure an LLM provider first", domain.ErrLLMUnavailable)
	}

	used := p.fitContext(hits)
	prompt, system := p.buildPrompt(strings.TrimSpace(question), used)
	logger.Debug("Prompt uses %d of %d passages", len(used), len(hits))

	text, err := p.llm.Generate(ctx, prompt, driven.GenerateOptions{
		SystemPrompt: system,
		MaxTokens:    p.maxAnswerTokens,
		Temperature:  p.temperature,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrGenerationFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("%w: empty response from %s", domain.ErrGenerationFailed, p.llm.ModelName())
	}

	logger.Elapsed("answer", start)
	return &domain.Answer{Text: text, Sources: attributions(used)}, nil
}

// Retrieve returns ranked source attributions without generating an answer.
func (p *RetrievalPipeline) Retrieve(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.SourceAttribution, error) {
	logger.Section("Retrieve")

	hits, err := p.search(ctx, question, opts)
	if err != nil {
		return nil, err
	}
	return attributions(hits), nil
}

// Stats returns index metadata.
func (p *RetrievalPipeline) Stats(ctx context.Context) (domain.IndexInfo, error) {
	return p.index.Info(ctx)
}

// Clear empties the index.
func (p *RetrievalPipeline) Clear(ctx context.Context) error {
	if err := p.index.Clear(ctx); err != nil {
		return fmt.Errorf("clear index: %w", err)
	}
	logger.Info("Index cleared")
	return nil
}

// search validates the question, embeds it, and returns hits above the floor.
func (p *RetrievalPipeline) search(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.ScoredEntry, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("%w: question is empty", domain.ErrInvalidInput)
	}

	info, err := p.index.Info(ctx)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if info.IsEmpty() {
		return nil, fmt.Errorf("%w: ingest a PDF first", domain.ErrEmptyCorpus)
	}

	if p.embedder == nil {
		return nil, fmt.Errorf("%w: configure an embedding provider first", domain.ErrEmbeddingUnavailable)
	}
	if info.Model != p.embedder.ModelName() {
		return nil, fmt.Errorf("%w: index built with %q, embedder is %q",
			domain.ErrModelMismatch, info.Model, p.embedder.ModelName())
	}

	vec, err := p.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}

	k := opts.Limit()
	hits, err := p.index.Search(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}
	logger.Debug("Retrieved %d of k=%d passages", len(hits), k)

	if opts.MinScore > 0 {
		kept := hits[:0]
		for _, h := range hits {
			if h.Score >= opts.MinScore {
				kept = append(kept, h)
			}
		}
		logger.Debug("%d passages above min score %.2f", len(kept), opts.MinScore)
		hits = kept
	}

	return hits, nil
}

// fitContext trims hits from the tail until their passages fit the token budget.
// The top hit is always kept.
func (p *RetrievalPipeline) fitContext(hits []domain.ScoredEntry) []domain.ScoredEntry {
	total := 0
	for i, h := range hits {
		total += p.tokens.Count(passage(i, h))
		if i > 0 && total > p.maxContextTokens {
			logger.Debug("Context budget of %d tokens reached after %d passages", p.maxContextTokens, i)
			return hits[:i]
		}
	}
	return hits
}

// buildPrompt renders the user prompt and system instruction.
func (p *RetrievalPipeline) buildPrompt(question string, hits []domain.ScoredEntry) (prompt, system string) {
	passages := make([]string, len(hits))
	for i, h := range hits {
		passages[i] = passage(i, h)
	}

	template := p.loadPrompt(driven.PromptAnswer, fallbackAnswerTemplate)
	system = p.loadPrompt(driven.PromptAnswerSystem, fallbackAnswerSystem)

	return fmt.Sprintf(template, strings.Join(passages, "\n\n"), question), system
}

func (p *RetrievalPipeline) loadPrompt(name, fallback string) string {
	if p.prompts == nil {
		return fallback
	}
	prompt, err := p.prompts.Load(name)
	if err != nil || prompt == "" {
		logger.Warn("Using built-in %s prompt: %v", name, err)
		return fallback
	}
	return prompt
}

// passage labels a hit for the prompt: "[n] <document>, page <p>".
func passage(i int, h domain.ScoredEntry) string {
	c := h.Entry.Chunk
	return fmt.Sprintf("[%d] %s, page %d\n%s", i+1, c.Document, c.Page, c.Content)
}

func attributions(hits []domain.ScoredEntry) []domain.SourceAttribution {
	out := make([]domain.SourceAttribution, len(hits))
	for i, h := range hits {
		out[i] = domain.NewSourceAttribution(h)
	}
	return out
}

// validateUploads rejects the whole batch before any work is done.
func validateUploads(files []domain.UploadedFile) error {
	if len(files) == 0 {
		return fmt.Errorf("%w: no files given", domain.ErrInvalidInput)
	}
	if len(files) > domain.MaxUploadFiles {
		return fmt.Errorf("%w: %d files given, at most %d allowed",
			domain.ErrInvalidInput, len(files), domain.MaxUploadFiles)
	}

	var errs []error
	for _, f := range files {
		switch {
		case strings.TrimSpace(f.Name) == "":
			errs = append(errs, errors.New("file without a name"))
		case !strings.EqualFold(filepath.Ext(f.Name), ".pdf"):
			errs = append(errs, fmt.Errorf("%s: not a .pdf file", f.Name))
		case !bytes.HasPrefix(f.Data, pdfMagic):
			errs = append(errs, fmt.Errorf("%s: content is not a PDF", f.Name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// runeEstimator approximates tokens as one per four characters.
type runeEstimator struct{}

func (runeEstimator) Count(text string) int {
	return (len([]rune(text)) + 3) / 4
}
