// Package normalisers turns uploaded file bytes into page text the chunker
// can work with. Each sub-package handles one document format.
package normalisers
