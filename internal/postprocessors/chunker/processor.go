// Package chunker provides a fixed-size text chunking processor.
package chunker

import (
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Processor implements the interface.
var _ driven.Chunker = (*Processor)(nil)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// pageSeparator joins consecutive pages so words never fuse across a page break.
const pageSeparator = '\n'

// Processor splits page text into fixed-size overlapping chunks.
// Sizes are measured in runes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	// Ensure overlap doesn't exceed chunk size
	if p.overlap >= p.chunkSize {
		p.overlap = p.chunkSize / 4
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// ChunkSize returns the configured window size.
func (p *Processor) ChunkSize() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Chunk slides a window over the concatenated page text.
//
// Window ends are moved back to the nearest preceding whitespace when one
// exists in the second half of the window, and window starts are moved
// forward past a partial word, so overlap never exceeds the configured value.
// Each chunk is attributed to the page holding its first non-space character.
func (p *Processor) Chunk(document string, pages []domain.Page) []domain.Chunk {
	text, starts := joinPages(pages)
	n := len(text)
	if n == 0 {
		return nil
	}

	estimatedChunks := (n / (p.chunkSize - p.overlap)) + 1
	chunks := make([]domain.Chunk, 0, estimatedChunks)

	index := 0
	start := 0
	for start < n {
		end := start + p.chunkSize
		if end >= n {
			end = n
		} else {
			end = p.snapEnd(text, start, end)
		}

		if c, ok := p.build(document, pages, starts, text, start, end, index); ok {
			chunks = append(chunks, c)
			index++
		}

		if end >= n {
			break
		}
		start = p.nextStart(text, start, end)
	}

	return chunks
}

// snapEnd moves end back to a whitespace boundary inside the second half of the window.
func (p *Processor) snapEnd(text []rune, start, end int) int {
	if unicode.IsSpace(text[end]) || unicode.IsSpace(text[end-1]) {
		return end
	}
	floor := start + p.chunkSize/2
	for j := end - 1; j > floor; j-- {
		if unicode.IsSpace(text[j]) {
			return j
		}
	}
	return end
}

// nextStart returns the start of the window following [start, end).
func (p *Processor) nextStart(text []rune, start, end int) int {
	next := end - p.overlap
	if next > 0 && !unicode.IsSpace(text[next-1]) {
		// Skip the partial word at the front of the overlap.
		for k := next; k < end; k++ {
			if unicode.IsSpace(text[k]) {
				next = k + 1
				break
			}
		}
	}
	if next <= start {
		next = start + 1
	}
	return next
}

// build creates a chunk for text[start:end], or reports false for blank windows.
func (p *Processor) build(
	document string,
	pages []domain.Page,
	starts []int,
	text []rune,
	start, end, index int,
) (domain.Chunk, bool) {
	window := text[start:end]
	lead := 0
	for lead < len(window) && unicode.IsSpace(window[lead]) {
		lead++
	}
	content := strings.TrimRightFunc(string(window[lead:]), unicode.IsSpace)
	if content == "" {
		return domain.Chunk{}, false
	}

	abs := start + lead
	pageIdx := sort.Search(len(starts), func(i int) bool { return starts[i] > abs }) - 1
	pageStart := starts[pageIdx]
	pageNumber := pages[pageIdx].Number

	return domain.Chunk{
		ID:       domain.ChunkID(document, pageNumber, index),
		Document: document,
		Page:     pageNumber,
		Index:    index,
		Content:  content,
		Start:    abs - pageStart,
		End:      abs - pageStart + len([]rune(content)),
	}, true
}

// joinPages concatenates page texts and records the rune offset where each page begins.
func joinPages(pages []domain.Page) ([]rune, []int) {
	var text []rune
	starts := make([]int, len(pages))
	for i, page := range pages {
		if i > 0 {
			text = append(text, pageSeparator)
		}
		starts[i] = len(text)
		text = append(text, []rune(page.Text)...)
	}
	return text, starts
}
