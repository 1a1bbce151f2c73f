package domain

// DefaultTopK is the number of passages retrieved when no k is given.
const DefaultTopK = 4

// IndexEntry pairs a chunk with its embedding vector.
// Entries are owned exclusively by the vector index.
type IndexEntry struct {
	Chunk     Chunk
	Embedding []float32
}

// ScoredEntry is a search hit with its cosine similarity.
type ScoredEntry struct {
	Entry IndexEntry

	// Score is the cosine similarity in [-1, 1].
	Score float64
}

// IndexInfo describes the persisted state of a vector index.
type IndexInfo struct {
	// Model is the embedding model the index was built with. Empty when the index is empty.
	Model string `json:"model"`

	// Dimensions is the vector length. Zero when the index is empty.
	Dimensions int `json:"dimensions"`

	// Entries is the number of indexed chunks.
	Entries int `json:"entries"`

	// Documents is the number of distinct document names.
	Documents int `json:"documents"`
}

// IsEmpty reports whether the index holds no entries.
func (i IndexInfo) IsEmpty() bool {
	return i.Entries == 0
}
