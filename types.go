package memorykeep

import (
	"fmt"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem:
		return true
	}
	return false
}

// ParseRole converts s into a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Category classifies an experience.
type Category string

const (
	CategoryNone       Category = ""
	CategoryPreference Category = "preference"
	CategoryFact       Category = "fact"
	CategoryPattern    Category = "pattern"
)

// NormalizeCategory maps unknown categories to CategoryNone.
func NormalizeCategory(s string) Category {
	switch c := Category(s); c {
	case CategoryPreference, CategoryFact, CategoryPattern:
		return c
	}
	return CategoryNone
}

// Message is one element of an assembled prompt.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage is the running token accounting of a session.
//
// Only StreamTokens counts against capacity. AuthorityTokens and
// SifterTokens record what the capability calls cost and never trigger a
// memory keep. The engine never stores a Usage: callers pass one in and get
// the updated value back.
type Usage struct {
	StreamTokens    int `json:"stream_tokens"`
	AuthorityTokens int `json:"authority_tokens"`
	SifterTokens    int `json:"sifter_tokens"`
}

// Total returns the sum of all counters.
func (u Usage) Total() int {
	return u.StreamTokens + u.AuthorityTokens + u.SifterTokens
}

// IntakeResult is the outcome of ingesting one turn.
type IntakeResult struct {
	// EntryID is the id of the appended stream entry.
	EntryID string

	// Important reports whether the turn produced a new experience.
	Important bool

	// Consolidation is set when the turn triggered a memory keep.
	Consolidation *ConsolidationResult

	// Usage is the caller's usage with this turn's costs added.
	Usage Usage
}

// ConsolidationResult contains the outcome of a memory keep.
type ConsolidationResult struct {
	// Summary is the text injected as the memory keep entry.
	Summary string `json:"summary"`

	// SummaryFallback reports whether the sidecar failed and the default summary was used.
	SummaryFallback bool `json:"summary_fallback"`

	// Patterns are the experiences created from the summary.
	Patterns []string `json:"patterns"`

	// EntriesBefore is the stream length before the memory keep.
	EntriesBefore int `json:"entries_before"`

	// EntriesAfter is the stream length after the memory keep.
	EntriesAfter int `json:"entries_after"`

	// TokensBefore is the stream token count before the memory keep.
	TokensBefore int `json:"tokens_before"`

	// TokensAfter is the stream token count after the memory keep.
	TokensAfter int `json:"tokens_after"`

	// SidecarTokens is what the summarization cost.
	SidecarTokens int `json:"sidecar_tokens"`

	// Duration is how long the memory keep took.
	Duration time.Duration `json:"duration"`
}

// Stats is a snapshot of a conversation's token accounting.
type Stats struct {
	StreamTokens    int     `json:"stream_tokens"`
	AuthorityTokens int     `json:"authority_tokens"`
	SifterTokens    int     `json:"sifter_tokens"`
	TotalTokens     int     `json:"total_tokens"`
	Capacity        int     `json:"capacity"`
	ThresholdPct    float64 `json:"threshold_pct"`
	ThresholdTokens int     `json:"threshold_tokens"`
	CapacityPct     float64 `json:"capacity_pct"`
	Entries         int     `json:"entries"`
	Experiences     int     `json:"experiences"`
}
