package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// fakePDF builds bytes that pass the upload sniff and map to pages in fakeExtractor.
func fakePDF(key string) []byte {
	return []byte("%PDF-1.7\n" + key)
}

// fakeExtractor returns preset pages keyed by the text after the PDF header.
type fakeExtractor struct {
	docs map[string][]string
}

func (f *fakeExtractor) Extract(_ context.Context, data []byte) ([]domain.Page, error) {
	key := strings.TrimPrefix(string(data), "%PDF-1.7\n")
	texts, ok := f.docs[key]
	if !ok {
		return nil, fmt.Errorf("%w: malformed pdf", domain.ErrInvalidInput)
	}
	pages := make([]domain.Page, len(texts))
	for i, t := range texts {
		pages[i] = domain.Page{Number: i + 1, Text: t}
	}
	return pages, nil
}

// pageChunker emits one chunk per non-empty page.
type pageChunker struct{}

func (pageChunker) Chunk(document string, pages []domain.Page) []domain.Chunk {
	var chunks []domain.Chunk
	for _, p := range pages {
		text := strings.TrimSpace(p.Text)
		if text == "" {
			continue
		}
		idx := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:       domain.ChunkID(document, p.Number, idx),
			Document: document,
			Page:     p.Number,
			Index:    idx,
			Content:  text,
			End:      len([]rune(text)),
		})
	}
	return chunks
}

// wordEmbedder hashes words into a bag-of-words vector so texts sharing
// words score higher. Deterministic and offline.
type wordEmbedder struct {
	model string
	dims  int

	mu         sync.Mutex
	docCalls   int
	queryCalls int
	docErr     error
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{model: "word-hash", dims: 256}
}

func (e *wordEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		vec[h.Sum32()%uint32(e.dims)]++
	}
	return vec
}

func (e *wordEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.docCalls++
	err := e.docErr
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.embed(t)
	}
	return out, nil
}

func (e *wordEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.queryCalls++
	e.mu.Unlock()
	return e.embed(text), nil
}

func (e *wordEmbedder) calls() (docs, queries int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.docCalls, e.queryCalls
}

func (e *wordEmbedder) Dimensions() int { return e.dims }
func (e *wordEmbedder) ModelName() string { return e.model }
func (e *wordEmbedder) Ping(_ context.Context) error { return nil }
func (e *wordEmbedder) Close() error { return nil }

// echoLLM answers with the text of the first passage in the prompt.
type echoLLM struct {
	mu      sync.Mutex
	prompts []string
	opts    []driven.GenerateOptions
	err     error
	reply   *string
}

func (l *echoLLM) Generate(_ context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.prompts = append(l.prompts, prompt)
	l.opts = append(l.opts, opts)
	if l.err != nil {
		return "", l.err
	}
	if l.reply != nil {
		return *l.reply, nil
	}
	i := strings.Index(prompt, "[1] ")
	if i < 0 {
		return "I don't know.", nil
	}
	lines := strings.SplitN(prompt[i:], "\n", 3)
	if len(lines) < 2 {
		return "I don't know.", nil
	}
	return "From the documents: " + lines[1], nil
}

func (l *echoLLM) lastPrompt() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.prompts) == 0 {
		return ""
	}
	return l.prompts[len(l.prompts)-1]
}

func (l *echoLLM) ModelName() string { return "echo" }
func (l *echoLLM) Ping(_ context.Context) error { return nil }
func (l *echoLLM) Close() error { return nil }

// staticPrompts is an in-memory PromptStore.
type staticPrompts map[string]string

func (p staticPrompts) Load(name string) (string, error) {
	if s, ok := p[name]; ok {
		return s, nil
	}
	return "", errors.New("no such prompt")
}

func (p staticPrompts) Reload() {}

// countingWords counts whitespace separated words as tokens.
type countingWords struct{}

func (countingWords) Count(text string) int { return len(strings.Fields(text)) }

// cosine is used by tests to sanity check the fake embedder.
func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
