package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/folio/internal/core/domain"
	"github.com/custodia-labs/folio/internal/core/ports/driven"
)

// nextTouch yields the next value of the conversations write sequence.
const nextTouch = "(SELECT COALESCE(MAX(touched), 0) + 1 FROM conversations)"

// conversationStore implements driven.ConversationStore.
type conversationStore struct {
	store *Store
}

var _ driven.ConversationStore = (*conversationStore)(nil)

// Create stores a new conversation.
func (s *conversationStore) Create(ctx context.Context, conv *domain.Conversation) error {
	if conv == nil || conv.ID == "" || conv.Owner == "" {
		return domain.ErrInvalidInput
	}

	title := conv.Title
	if title == "" {
		title = domain.DefaultConversationTitle
	}
	created := conv.CreatedAt
	if created.IsZero() {
		created = s.store.now()
	}
	updated := conv.UpdatedAt
	if updated.IsZero() {
		updated = created
	}

	res, err := s.store.db.ExecContext(ctx, `
		INSERT INTO conversations (id, owner, title, created_at, updated_at, message_count, touched)
		VALUES (?, ?, ?, ?, ?, 0, `+nextTouch+`)
		ON CONFLICT(id) DO NOTHING
	`, conv.ID, conv.Owner, title, toUnix(created), toUnix(updated))
	if err != nil {
		return fmt.Errorf("saving conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: conversation %s already exists", domain.ErrInvalidInput, conv.ID)
	}
	return nil
}

// Append adds messages and bumps the conversation in one transaction.
func (s *conversationStore) Append(ctx context.Context, id, owner string, msgs ...domain.Message) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	if err := checkOwner(ctx, tx, id, owner); err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, conversation_id, role, content, sources, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, msg := range msgs {
		sources, err := encodeSources(msg)
		if err != nil {
			return err
		}
		created := msg.Timestamp()
		if created.IsZero() {
			created = s.store.now()
		}
		if _, err := stmt.ExecContext(ctx, msg.MessageID(), id, string(msg.Role()),
			msg.Content(), sources, toUnix(created)); err != nil {
			return fmt.Errorf("saving message: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE conversations SET updated_at = ?, message_count = message_count + ?, touched = `+nextTouch+`
		WHERE id = ?
	`, toUnix(s.store.now()), len(msgs), id); err != nil {
		return fmt.Errorf("updating conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing messages: %w", err)
	}
	return nil
}

// RenameIfDefault sets the title only while it is still the default.
func (s *conversationStore) RenameIfDefault(ctx context.Context, id, owner, title string) (bool, error) {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ?, touched = `+nextTouch+`
		WHERE id = ? AND owner = ? AND title = ?
	`, title, toUnix(s.store.now()), id, owner, domain.DefaultConversationTitle)
	if err != nil {
		return false, fmt.Errorf("renaming conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return true, nil
	}

	// Distinguish "already titled" from "not found".
	if err := checkOwner(ctx, s.store.db, id, owner); err != nil {
		return false, err
	}
	return false, nil
}

// SetTitle sets the title unconditionally.
func (s *conversationStore) SetTitle(ctx context.Context, id, owner, title string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE conversations SET title = ?, updated_at = ?, touched = `+nextTouch+`
		WHERE id = ? AND owner = ?
	`, title, toUnix(s.store.now()), id, owner)
	if err != nil {
		return fmt.Errorf("setting conversation title: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// List returns summaries ordered by most recent update. Conversations
// with equal update times keep the order of their last write.
func (s *conversationStore) List(
	ctx context.Context, owner string, opts domain.ListOptions,
) ([]domain.ConversationSummary, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at, c.message_count,
			COALESCE((
				SELECT m.content FROM messages m
				WHERE m.conversation_id = c.id AND m.role = 'user'
				ORDER BY m.seq DESC LIMIT 1
			), '')
		FROM conversations c
		WHERE c.owner = ?
		ORDER BY c.updated_at DESC, c.touched DESC
		LIMIT ? OFFSET ?
	`, owner, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("querying conversations: %w", err)
	}
	defer rows.Close()

	var summaries []domain.ConversationSummary //nolint:prealloc // size unknown from query
	for rows.Next() {
		var sum domain.ConversationSummary
		var created, updated int64
		var last string
		if err := rows.Scan(&sum.ID, &sum.Title, &created, &updated, &sum.MessageCount, &last); err != nil {
			return nil, fmt.Errorf("scanning conversation: %w", err)
		}
		sum.CreatedAt = fromUnix(created)
		sum.UpdatedAt = fromUnix(updated)
		sum.LastMessage = domain.Preview(last)
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating conversations: %w", err)
	}
	return summaries, nil
}

// Get returns a conversation with its messages in order. Both reads share
// one transaction so MessageCount always matches Messages.
func (s *conversationStore) Get(ctx context.Context, id, owner string) (*domain.Conversation, error) {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer rollback(tx)

	var conv domain.Conversation
	var created, updated int64
	err = tx.QueryRowContext(ctx, `
		SELECT id, owner, title, created_at, updated_at, message_count
		FROM conversations WHERE id = ? AND owner = ?
	`, id, owner).Scan(&conv.ID, &conv.Owner, &conv.Title, &created, &updated, &conv.MessageCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	conv.CreatedAt = fromUnix(created)
	conv.UpdatedAt = fromUnix(updated)

	rows, err := tx.QueryContext(ctx, `
		SELECT id, role, content, sources, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	conv.Messages = make([]domain.Message, 0, conv.MessageCount)
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return &conv, nil
}

// Delete removes a conversation; messages cascade.
func (s *conversationStore) Delete(ctx context.Context, id, owner string) error {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE id = ? AND owner = ?", id, owner)
	if err != nil {
		return fmt.Errorf("deleting conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll removes every conversation belonging to owner.
func (s *conversationStore) DeleteAll(ctx context.Context, owner string) (int, error) {
	res, err := s.store.db.ExecContext(ctx, "DELETE FROM conversations WHERE owner = ?", owner)
	if err != nil {
		return 0, fmt.Errorf("deleting conversations: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("counting deleted conversations: %w", err)
	}
	return int(n), nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// checkOwner returns domain.ErrNotFound unless id exists and belongs to owner.
func checkOwner(ctx context.Context, q queryRower, id, owner string) error {
	var one int
	err := q.QueryRowContext(ctx, "SELECT 1 FROM conversations WHERE id = ? AND owner = ?", id, owner).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("checking conversation: %w", err)
	}
	return nil
}

func encodeSources(msg domain.Message) (sql.NullString, error) {
	var sources []domain.SourceAttribution
	switch m := msg.(type) {
	case domain.AssistantMessage:
		sources = m.Sources
	case *domain.AssistantMessage:
		sources = m.Sources
	default:
		return sql.NullString{}, nil
	}
	if sources == nil {
		sources = []domain.SourceAttribution{}
	}
	data, err := json.Marshal(sources)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshalling sources: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func scanMessage(rows *sql.Rows) (domain.Message, error) {
	var id, role, content string
	var sources sql.NullString
	var created int64
	if err := rows.Scan(&id, &role, &content, &sources, &created); err != nil {
		return nil, fmt.Errorf("scanning message: %w", err)
	}

	switch domain.Role(role) {
	case domain.RoleUser:
		return domain.UserMessage{ID: id, Text: content, CreatedAt: fromUnix(created)}, nil
	case domain.RoleAssistant:
		msg := domain.AssistantMessage{ID: id, Text: content, CreatedAt: fromUnix(created)}
		if sources.Valid && sources.String != "" {
			if err := json.Unmarshal([]byte(sources.String), &msg.Sources); err != nil {
				return nil, fmt.Errorf("unmarshalling sources: %w", err)
			}
		}
		return msg, nil
	default:
		return nil, fmt.Errorf("unknown message role %q", role)
	}
}
