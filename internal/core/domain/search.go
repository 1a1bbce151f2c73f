package domain

import "strings"

// SnippetLength is the maximum number of characters kept in a source snippet.
const SnippetLength = 200

// RetrievalOptions configures a retrieval query.
type RetrievalOptions struct {
	// K is the number of passages to retrieve. Zero means DefaultTopK.
	K int

	// MinScore drops passages scoring below it. Zero disables the floor.
	MinScore float64
}

// Limit returns the effective k.
func (o RetrievalOptions) Limit() int {
	if o.K <= 0 {
		return DefaultTopK
	}
	return o.K
}

// SourceAttribution links an answer to a chunk that grounded it.
// It is a copy of retrieval-time data and survives index changes.
type SourceAttribution struct {
	// Document is the originating document name.
	Document string `json:"source"`

	// Page is the 1-based page number.
	Page int `json:"page"`

	// Snippet is a truncated preview of the chunk text.
	Snippet string `json:"snippet"`

	// Score is the cosine similarity of the chunk to the question.
	Score float64 `json:"score"`
}

// NewSourceAttribution builds an attribution from a search hit.
func NewSourceAttribution(hit ScoredEntry) SourceAttribution {
	return SourceAttribution{
		Document: hit.Entry.Chunk.Document,
		Page:     hit.Entry.Chunk.Page,
		Snippet:  Truncate(hit.Entry.Chunk.Content, SnippetLength),
		Score:    hit.Score,
	}
}

// Answer is a generated response with the sources used to produce it.
type Answer struct {
	Text    string              `json:"answer"`
	Sources []SourceAttribution `json:"sources"`
}

// Truncate shortens s to at most n runes of content, appending "..." when cut.
func Truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n])) + "..."
}
