// Package pdf extracts per-page plain text from PDF documents.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PageExtractor = (*Extractor)(nil)

// Extractor reads PDF bytes and returns one domain.Page per PDF page.
// Pages without a text layer come back with empty Text so numbering
// stays aligned with the source document.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of every page, numbered from 1.
func (e *Extractor) Extract(ctx context.Context, data []byte) (pages []domain.Page, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty pdf", domain.ErrInvalidInput)
	}

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("%w: malformed pdf: %v", domain.ErrInvalidInput, r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening pdf: %v", domain.ErrInvalidInput, err)
	}

	numPages := reader.NumPage()
	pages = make([]domain.Page, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, domain.Page{Number: i})
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: extracting page %d: %v", domain.ErrInvalidInput, i, err)
		}
		pages = append(pages, domain.Page{Number: i, Text: clean(text)})
	}

	return pages, nil
}

// clean drops NUL bytes and trailing whitespace left by some encoders.
func clean(text string) string {
	text = strings.ReplaceAll(text, "\x00", "")
	return strings.TrimRight(text, " \t\r\n")
}
