package memorykeep

import (
	"context"
)

// DefaultSummary is used when the sidecar cannot summarize the stream.
const DefaultSummary = "Conversation consolidated."

// ImportanceJudgment is the authority's verdict on one turn.
type ImportanceJudgment struct {
	Important bool     `json:"important"`
	Category  Category `json:"category"`
	Fact      string   `json:"fact"`

	// TokenCost is what the judgment cost, paid whatever the verdict.
	TokenCost int `json:"tokens"`
}

// SearchDecision is the authority's answer to "does this message need
// past experience?".
type SearchDecision struct {
	NeedsSearch bool   `json:"needs_search"`
	Query       string `json:"search_query"`
	Reason      string `json:"reason"`
}

// Summary is the sidecar's digest of a stream.
type Summary struct {
	Summary   string   `json:"summary"`
	Patterns  []string `json:"patterns"`
	TokenCost int      `json:"sidecar_tokens"`
}

// Authority is the high-capability judgment model.
//
// Implementations return an error when the model call fails or its output
// cannot be parsed. The engine never propagates those errors; it falls back
// to a neutral result.
type Authority interface {
	JudgeImportance(ctx context.Context, role Role, content string) (*ImportanceJudgment, error)
	DecideSearch(ctx context.Context, userMessage string) (*SearchDecision, error)
}

// Sidecar is the lightweight summarization model used during a memory keep.
// Errors are recovered the same way as for Authority.
type Sidecar interface {
	Summarize(ctx context.Context, conversationText string) (*Summary, error)
}

// Responder generates the assistant reply from an assembled prompt.
type Responder interface {
	Generate(ctx context.Context, messages []Message) (string, error)
}

// neutralJudgment is the verdict used when the authority is unavailable.
func neutralJudgment() *ImportanceJudgment {
	return &ImportanceJudgment{Important: false, Category: CategoryNone}
}

// neutralSummary is the digest used when the sidecar is unavailable.
func neutralSummary() *Summary {
	return &Summary{Summary: DefaultSummary, Patterns: []string{}}
}
