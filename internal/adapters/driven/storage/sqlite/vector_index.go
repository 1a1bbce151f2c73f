package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/custodia-labs/folio/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// vectorIndex implements driven.VectorIndex.
// SQLite is the source of truth; searches run against an in-memory copy
// that is updated only after a write has committed.
type vectorIndex struct {
	store *Store
	// writeMu serialises Insert and Clear so the memory copy applies
	// batches in commit order.
	writeMu sync.Mutex
	mem     *memory.VectorIndex
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// loadVectorIndex reads every persisted entry into memory.
func loadVectorIndex(ctx context.Context, s *Store) (*vectorIndex, error) {
	idx := &vectorIndex{store: s, mem: memory.NewVectorIndex()}

	var model string
	var dims int
	err := s.db.QueryRowContext(ctx, "SELECT model, dimensions FROM index_meta WHERE id = 1").
		Scan(&model, &dims)
	if errors.Is(err, sql.ErrNoRows) {
		return idx, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT chunk_id, document, page, chunk_index, content, start_offset, end_offset, embedding
		FROM index_entries ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("querying index entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.IndexEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.IndexEntry
		var blob []byte
		if err := rows.Scan(&e.Chunk.ID, &e.Chunk.Document, &e.Chunk.Page, &e.Chunk.Index,
			&e.Chunk.Content, &e.Chunk.Start, &e.Chunk.End, &blob); err != nil {
			return nil, fmt.Errorf("scanning index entry: %w", err)
		}
		e.Embedding = decodeVector(blob)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating index entries: %w", err)
	}

	if len(entries) > 0 && len(entries[0].Embedding) != dims {
		return nil, fmt.Errorf("%w: stored entries have %d dimensions, metadata says %d",
			domain.ErrDimensionMismatch, len(entries[0].Embedding), dims)
	}
	if err := idx.mem.Insert(ctx, model, entries); err != nil {
		return nil, fmt.Errorf("loading index: %w", err)
	}
	return idx, nil
}

// Insert persists entries in one transaction, then makes them searchable.
func (v *vectorIndex) Insert(ctx context.Context, model string, entries []domain.IndexEntry) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	if err := v.mem.Validate(model, entries); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO index_meta (id, model, dimensions, updated_at) VALUES (1, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
	`, model, len(entries[0].Embedding), toUnix(v.store.now()))
	if err != nil {
		return fmt.Errorf("saving index metadata: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO index_entries
			(chunk_id, document, page, chunk_index, content, start_offset, end_offset, embedding)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		c := entries[i].Chunk
		if _, err := stmt.ExecContext(ctx, c.ID, c.Document, c.Page, c.Index, c.Content,
			c.Start, c.End, encodeVector(entries[i].Embedding)); err != nil {
			return fmt.Errorf("saving index entry %s: %w", c.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing index entries: %w", err)
	}

	return v.mem.Insert(ctx, model, entries)
}

// Search runs against the in-memory copy.
func (v *vectorIndex) Search(ctx context.Context, query []float32, k int) ([]domain.ScoredEntry, error) {
	return v.mem.Search(ctx, query, k)
}

// Clear removes every entry and the recorded model.
func (v *vectorIndex) Clear(ctx context.Context) error {
	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	tx, err := v.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if _, err := tx.ExecContext(ctx, "DELETE FROM index_entries"); err != nil {
		return fmt.Errorf("clearing index entries: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM index_meta"); err != nil {
		return fmt.Errorf("clearing index metadata: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing clear: %w", err)
	}

	return v.mem.Clear(ctx)
}

// Info returns index metadata.
func (v *vectorIndex) Info(ctx context.Context) (domain.IndexInfo, error) {
	return v.mem.Info(ctx)
}

// Close is a no-op; the owning Store closes the database.
func (v *vectorIndex) Close() error {
	return nil
}

// encodeVector stores a vector as little-endian float32s.
func encodeVector(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(f))
	}
	return buf
}

func decodeVector(b []byte) []float32 {
	if len(b) == 0 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return v
}
