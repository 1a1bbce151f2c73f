// Package tiktoken counts tokens with OpenAI's BPE encodings.
package tiktoken

import (
	"fmt"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// DefaultEncoding is used by gpt-4, gpt-4o-mini and the text-embedding-3 models.
const DefaultEncoding = "cl100k_base"

// charsPerToken is the rough ratio used when no encoding is loaded.
const charsPerToken = 4

// Counter counts tokens in text.
type Counter struct {
	tke *tiktoken.Tiktoken
}

// New loads the named encoding. The BPE ranks are fetched and cached
// on first use, so this can fail when offline.
func New(encoding string) (*Counter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("loading tiktoken encoding %s: %w", encoding, err)
	}
	return &Counter{tke: tke}, nil
}

// Approximate returns a Counter that estimates one token per four characters.
func Approximate() *Counter {
	return &Counter{}
}

// IsExact reports whether a real encoding is loaded.
func (c *Counter) IsExact() bool {
	return c.tke != nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.tke == nil {
		return (utf8.RuneCountInString(text) + charsPerToken - 1) / charsPerToken
	}
	return len(c.tke.Encode(text, nil, nil))
}
