// Package sqlite provides SQLite-backed implementations of the folio storage ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. A single database file holds:
//
//   - VectorIndex: chunk embeddings plus the model they were built with
//   - ConversationStore: chat sessions and their messages
//
// # Schema
//
// The schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.folio/data/folio.db
//
// # Vector Search
//
// The vector index is loaded into memory when opened and searched by exact
// cosine similarity. Inserts are committed to SQLite before they become
// visible to searches, so a crash never leaves a half-written batch behind.
package sqlite
