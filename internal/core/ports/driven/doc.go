// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - PageExtractor: Extracts per-page text from a PDF
//   - Chunker: Splits pages into overlapping chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex: Durable exact-scan similarity index
//   - LLMService: Generates answers from an assembled prompt
//   - ConversationStore: Persists chat sessions
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - TokenCounter: Bounds prompt context. Without it, all retrieved passages are used.
//   - PromptStore: User-editable prompts. Without it, built-in prompts are used.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or normaliser package
package driven
