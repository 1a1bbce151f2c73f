package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MaxUploadFiles is the maximum number of files accepted by one ingestion call.
const MaxUploadFiles = 4

// UploadedFile is a named byte blob submitted for ingestion.
type UploadedFile struct {
	// Name is the original filename, used as the document name.
	Name string

	// Data is the raw file content.
	Data []byte
}

// Page is the extracted text of one page of a document.
type Page struct {
	// Number is the 1-based page number.
	Number int

	// Text is the raw extracted text.
	Text string
}

// Chunk is the unit of retrieval: a bounded span of document text.
// Chunks are immutable once created.
type Chunk struct {
	// ID is stable across restarts, formatted by ChunkID.
	ID string

	// Document is the name of the owning document (the uploaded filename).
	Document string

	// Page is the 1-based page containing the start of the chunk.
	Page int

	// Index is the sequence number within the document, starting at 0.
	Index int

	// Content is the chunk text. Never empty.
	Content string

	// Start is the rune offset of the chunk within its page.
	Start int

	// End is the exclusive rune offset of the chunk end, relative to the same page.
	// It may exceed the page length when the chunk spans a page break.
	End int
}

// ChunkID builds the identifier for a chunk.
func ChunkID(document string, page, index int) string {
	if ext := filepath.Ext(document); strings.EqualFold(ext, ".pdf") {
		document = strings.TrimSuffix(document, ext)
	}
	return fmt.Sprintf("%s_p%d_c%d", document, page, index)
}

// FileIngestResult reports what a single file contributed to an ingestion.
type FileIngestResult struct {
	// Name is the filename.
	Name string `json:"name"`

	// Pages is the number of pages extracted.
	Pages int `json:"pages"`

	// Chunks is the number of chunks indexed from this file.
	Chunks int `json:"chunks"`
}

// IngestResult reports the outcome of an ingestion call.
type IngestResult struct {
	// IndexedFiles is the number of files processed.
	IndexedFiles int `json:"indexed_files"`

	// IndexedChunks is the total number of chunks added to the index.
	IndexedChunks int `json:"indexed_chunks"`

	// Files holds per-file counts in upload order.
	Files []FileIngestResult `json:"files"`
}
