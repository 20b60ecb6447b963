// Package sqlstore implements storage.Store on top of driver.Executor.
//
// The same statements serve Postgres (pgx/v5 or lib/pq) and SQLite: both
// accept $N placeholders and ON CONFLICT upserts. Drivers construct a Store
// with their pool executor; transactions travel in the context.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/memorykeep/driver"
	"github.com/youssefsiam38/memorykeep/storage"
)

// ErrConversationIDRequired is returned when an operation has no conversation scope.
var ErrConversationIDRequired = errors.New("conversation_id is required")

// Store implements storage.Store using a driver.Executor.
type Store struct {
	exec driver.Executor
}

// New creates a Store that runs non-transactional statements on exec.
func New(exec driver.Executor) *Store {
	return &Store{exec: exec}
}

var _ storage.Store = (*Store)(nil)

// getExecutor returns the executor from context if present, otherwise the default pool executor.
func (s *Store) getExecutor(ctx context.Context) driver.Executor {
	if exec := driver.ExecutorFromContext(ctx); exec != nil {
		return exec
	}
	return s.exec
}

// RunInTx runs fn inside a transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return driver.RunInTx(ctx, s.exec, fn)
}

// AppendEntry appends a turn to the end of the conversation's stream.
func (s *Store) AppendEntry(ctx context.Context, params *storage.AppendEntryParams) (*storage.StreamEntry, error) {
	if params.ConversationID == "" {
		return nil, ErrConversationIDRequired
	}

	entry := &storage.StreamEntry{
		ID:             uuid.New().String(),
		ConversationID: params.ConversationID,
		Role:           params.Role,
		Content:        params.Content,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		exec := s.getExecutor(ctx)

		seq, err := nextSeq(ctx, exec, storage.TableStreamEntries, entry.ConversationID)
		if err != nil {
			return err
		}
		entry.Seq = seq

		query := `
			INSERT INTO memorykeep_stream_entries (id, conversation_id, seq, role, content, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = exec.Exec(ctx, query,
			entry.ID,
			entry.ConversationID,
			entry.Seq,
			entry.Role,
			entry.Content,
			entry.CreatedAt,
		)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to append entry: %w", err)
	}

	return entry, nil
}

// GetEntries retrieves the stream for a conversation ordered by arrival.
func (s *Store) GetEntries(ctx context.Context, conversationID string) ([]*storage.StreamEntry, error) {
	query := `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM memorykeep_stream_entries
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	var entries []*storage.StreamEntry
	for rows.Next() {
		var e storage.StreamEntry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Seq, &e.Role, &e.Content, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate entries: %w", err)
	}

	return entries, nil
}

// DeleteEntries removes the whole stream of a conversation.
func (s *Store) DeleteEntries(ctx context.Context, conversationID string) (int, error) {
	query := `DELETE FROM memorykeep_stream_entries WHERE conversation_id = $1`

	n, err := s.getExecutor(ctx).Exec(ctx, query, conversationID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries: %w", err)
	}
	return int(n), nil
}

// CreateExperience stores a new long-term memory item.
func (s *Store) CreateExperience(ctx context.Context, params *storage.CreateExperienceParams) (*storage.Experience, error) {
	if params.ConversationID == "" {
		return nil, ErrConversationIDRequired
	}

	exp := &storage.Experience{
		ID:             uuid.New().String(),
		ConversationID: params.ConversationID,
		Content:        params.Content,
		Category:       params.Category,
		CreatedAt:      time.Now().UTC(),
	}

	err := s.RunInTx(ctx, func(ctx context.Context) error {
		exec := s.getExecutor(ctx)

		seq, err := nextSeq(ctx, exec, storage.TableExperiences, exp.ConversationID)
		if err != nil {
			return err
		}

		query := `
			INSERT INTO memorykeep_experiences (id, conversation_id, seq, content, category, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		_, err = exec.Exec(ctx, query, exp.ID, exp.ConversationID, seq, exp.Content, exp.Category, exp.CreatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create experience: %w", err)
	}

	return exp, nil
}

// GetExperiences retrieves all experiences for a conversation in creation order.
func (s *Store) GetExperiences(ctx context.Context, conversationID string) ([]*storage.Experience, error) {
	query := `
		SELECT id, conversation_id, content, category, created_at
		FROM memorykeep_experiences
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query experiences: %w", err)
	}
	defer rows.Close()

	var experiences []*storage.Experience
	for rows.Next() {
		var e storage.Experience
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Content, &e.Category, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan experience: %w", err)
		}
		experiences = append(experiences, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate experiences: %w", err)
	}

	return experiences, nil
}

// UpsertDomainFact creates or replaces the value stored under key.
func (s *Store) UpsertDomainFact(ctx context.Context, conversationID, key, value string) error {
	if conversationID == "" {
		return ErrConversationIDRequired
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}

	query := `
		INSERT INTO memorykeep_domain_facts (conversation_id, key, value, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (conversation_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`

	_, err := s.getExecutor(ctx).Exec(ctx, query, conversationID, key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to upsert domain fact: %w", err)
	}
	return nil
}

// GetDomainFacts retrieves the facts of a conversation in the order they were first written.
func (s *Store) GetDomainFacts(ctx context.Context, conversationID string) ([]*storage.DomainFact, error) {
	query := `
		SELECT conversation_id, key, value, created_at, updated_at
		FROM memorykeep_domain_facts
		WHERE conversation_id = $1
		ORDER BY created_at ASC, key ASC
	`

	rows, err := s.getExecutor(ctx).Query(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query domain facts: %w", err)
	}
	defer rows.Close()

	var facts []*storage.DomainFact
	for rows.Next() {
		var f storage.DomainFact
		if err := rows.Scan(&f.ConversationID, &f.Key, &f.Value, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan domain fact: %w", err)
		}
		facts = append(facts, &f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate domain facts: %w", err)
	}

	return facts, nil
}

// nextSeq returns the next per-conversation sequence number for table.
// The (conversation_id, seq) unique constraint rejects a concurrent duplicate.
func nextSeq(ctx context.Context, exec driver.Executor, table, conversationID string) (int64, error) {
	var seq int64
	query := fmt.Sprintf(`SELECT COALESCE(MAX(seq), 0) + 1 FROM %s WHERE conversation_id = $1`, table)
	if err := exec.QueryRow(ctx, query, conversationID).Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to compute sequence: %w", err)
	}
	return seq, nil
}
