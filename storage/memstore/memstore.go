// Package memstore provides an in-process storage.Store.
//
// It is used by tests and by ephemeral runs that do not need durability.
// Transactions work on a private copy of the data that replaces the shared
// state on commit, so readers never observe a half-applied transaction.
package memstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/youssefsiam38/memorykeep/storage"
)

// ErrConversationIDRequired is returned when an operation has no conversation scope.
var ErrConversationIDRequired = errors.New("conversation_id is required")

type state struct {
	entries     map[string][]storage.StreamEntry
	experiences map[string][]storage.Experience
	facts       map[string][]storage.DomainFact
	entrySeq    map[string]int64
}

func newState() *state {
	return &state{
		entries:     make(map[string][]storage.StreamEntry),
		experiences: make(map[string][]storage.Experience),
		facts:       make(map[string][]storage.DomainFact),
		entrySeq:    make(map[string]int64),
	}
}

func (s *state) clone() *state {
	c := newState()
	for k, v := range s.entries {
		c.entries[k] = append([]storage.StreamEntry(nil), v...)
	}
	for k, v := range s.experiences {
		c.experiences[k] = append([]storage.Experience(nil), v...)
	}
	for k, v := range s.facts {
		c.facts[k] = append([]storage.DomainFact(nil), v...)
	}
	for k, v := range s.entrySeq {
		c.entrySeq[k] = v
	}
	return c
}

type txContextKey struct{}

// Store is an in-memory storage.Store. The zero value is not usable; call New.
type Store struct {
	mu    sync.Mutex
	state *state
	now   func() time.Time
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}
}

var _ storage.Store = (*Store)(nil)

// view runs fn against the transaction copy carried by ctx, or against the
// shared state under the store lock.
func (s *Store) view(ctx context.Context, fn func(st *state) error) error {
	if tx, ok := ctx.Value(txContextKey{}).(*state); ok {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.state)
}

// RunInTx runs fn against a private copy of the data and publishes the copy
// if fn succeeds. Nested calls join the outer transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*state); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	working := s.state.clone()
	if err := fn(context.WithValue(ctx, txContextKey{}, working)); err != nil {
		return err
	}
	s.state = working
	return nil
}

// AppendEntry appends a turn to the end of the conversation's stream.
func (s *Store) AppendEntry(ctx context.Context, params *storage.AppendEntryParams) (*storage.StreamEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.ConversationID == "" {
		return nil, ErrConversationIDRequired
	}

	var entry storage.StreamEntry
	err := s.view(ctx, func(st *state) error {
		st.entrySeq[params.ConversationID]++
		entry = storage.StreamEntry{
			ID:             uuid.New().String(),
			ConversationID: params.ConversationID,
			Seq:            st.entrySeq[params.ConversationID],
			Role:           params.Role,
			Content:        params.Content,
			CreatedAt:      s.now(),
		}
		st.entries[params.ConversationID] = append(st.entries[params.ConversationID], entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// GetEntries returns the stream in arrival order.
func (s *Store) GetEntries(ctx context.Context, conversationID string) ([]*storage.StreamEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*storage.StreamEntry
	_ = s.view(ctx, func(st *state) error {
		for _, e := range st.entries[conversationID] {
			e := e
			out = append(out, &e)
		}
		return nil
	})
	return out, nil
}

// DeleteEntries removes the whole stream of a conversation.
// Sequence numbers keep increasing so re-inserted turns sort after the old ones.
func (s *Store) DeleteEntries(ctx context.Context, conversationID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	var n int
	_ = s.view(ctx, func(st *state) error {
		n = len(st.entries[conversationID])
		delete(st.entries, conversationID)
		return nil
	})
	return n, nil
}

// CreateExperience stores a new long-term memory item.
func (s *Store) CreateExperience(ctx context.Context, params *storage.CreateExperienceParams) (*storage.Experience, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if params.ConversationID == "" {
		return nil, ErrConversationIDRequired
	}

	exp := storage.Experience{
		ID:             uuid.New().String(),
		ConversationID: params.ConversationID,
		Content:        params.Content,
		Category:       params.Category,
		CreatedAt:      s.now(),
	}
	_ = s.view(ctx, func(st *state) error {
		st.experiences[params.ConversationID] = append(st.experiences[params.ConversationID], exp)
		return nil
	})
	return &exp, nil
}

// GetExperiences returns all experiences of a conversation in creation order.
func (s *Store) GetExperiences(ctx context.Context, conversationID string) ([]*storage.Experience, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*storage.Experience
	_ = s.view(ctx, func(st *state) error {
		for _, e := range st.experiences[conversationID] {
			e := e
			out = append(out, &e)
		}
		return nil
	})
	return out, nil
}

// UpsertDomainFact creates or replaces the value stored under key.
func (s *Store) UpsertDomainFact(ctx context.Context, conversationID, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if conversationID == "" {
		return ErrConversationIDRequired
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}

	now := s.now()
	return s.view(ctx, func(st *state) error {
		facts := st.facts[conversationID]
		for i := range facts {
			if facts[i].Key == key {
				facts[i].Value = value
				facts[i].UpdatedAt = now
				return nil
			}
		}
		st.facts[conversationID] = append(facts, storage.DomainFact{
			ConversationID: conversationID,
			Key:            key,
			Value:          value,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		return nil
	})
}

// GetDomainFacts returns the facts of a conversation in the order they were first written.
func (s *Store) GetDomainFacts(ctx context.Context, conversationID string) ([]*storage.DomainFact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*storage.DomainFact
	_ = s.view(ctx, func(st *state) error {
		for _, f := range st.facts[conversationID] {
			f := f
			out = append(out, &f)
		}
		return nil
	})
	return out, nil
}
