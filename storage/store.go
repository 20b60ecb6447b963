package storage

import (
	"context"
	"time"
)

// Store defines the persistence operations the memory engine needs.
// Every operation is scoped to a single conversation.
type Store interface {
	// Stream operations (working memory)
	AppendEntry(ctx context.Context, params *AppendEntryParams) (*StreamEntry, error)
	// GetEntries returns the conversation's stream in arrival order.
	GetEntries(ctx context.Context, conversationID string) ([]*StreamEntry, error)
	DeleteEntries(ctx context.Context, conversationID string) (int, error)

	// Experience operations (long-term memory)
	CreateExperience(ctx context.Context, params *CreateExperienceParams) (*Experience, error)
	// GetExperiences returns every experience of the conversation in creation order.
	GetExperiences(ctx context.Context, conversationID string) ([]*Experience, error)

	// Domain fact operations
	UpsertDomainFact(ctx context.Context, conversationID, key, value string) error
	GetDomainFacts(ctx context.Context, conversationID string) ([]*DomainFact, error)

	// RunInTx runs fn inside a transaction. Store calls made with the context
	// passed to fn participate in it; the transaction commits only if fn
	// returns nil.
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// StreamEntry is one turn of a conversation held in working memory.
type StreamEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int64     `json:"seq"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// AppendEntryParams holds the fields for a new stream entry.
type AppendEntryParams struct {
	ConversationID string
	Role           string
	Content        string
}

// Experience is a synthesized fact or pattern kept in long-term memory.
// Experiences are never mutated after creation.
type Experience struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Content        string    `json:"content"`
	Category       string    `json:"category"`
	CreatedAt      time.Time `json:"created_at"`
}

// CreateExperienceParams holds the fields for a new experience.
type CreateExperienceParams struct {
	ConversationID string
	Content        string
	Category       string
}

// DomainFact is a structured key/value fact about the conversation subject.
type DomainFact struct {
	ConversationID string    `json:"conversation_id"`
	Key            string    `json:"key"`
	Value          string    `json:"value"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
