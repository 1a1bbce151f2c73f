// Package domain defines the core business entities for Folio.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Page: Extracted text of one PDF page
//   - Chunk: A bounded, page-attributed span of document text
//   - IndexEntry: A chunk paired with its embedding vector
//   - Conversation: An owned, ordered sequence of messages
//   - Message: Either a UserMessage or an AssistantMessage with sources
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
