package provider

import (
	"context"
	"fmt"

	"github.com/youssefsiam38/memorykeep"
)

// Default response budgets.
const (
	DefaultJudgmentMaxTokens = 512
	DefaultSummaryMaxTokens  = 1024
	DefaultReplyMaxTokens    = 2048
)

// Authority implements memorykeep.Authority on a Model.
type Authority struct {
	model Model
}

// NewAuthority creates an Authority that asks model.
func NewAuthority(model Model) *Authority {
	return &Authority{model: model}
}

var _ memorykeep.Authority = (*Authority)(nil)

type importanceOutput struct {
	Important bool   `json:"important"`
	Category  string `json:"category"`
	Fact      string `json:"fact"`
}

// JudgeImportance asks the model whether a turn should become an experience.
func (a *Authority) JudgeImportance(ctx context.Context, role memorykeep.Role, content string) (*memorykeep.ImportanceJudgment, error) {
	prompt := ImportancePrompt(role, content)

	resp, err := complete(ctx, a.model, prompt, DefaultJudgmentMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memorykeep.ErrCapabilityFailed, err)
	}

	var out importanceOutput
	if err := decode(resp.Text, importanceSchema, &out); err != nil {
		return nil, err
	}

	return &memorykeep.ImportanceJudgment{
		Important: out.Important,
		Category:  memorykeep.NormalizeCategory(out.Category),
		Fact:      out.Fact,
		TokenCost: cost(prompt, resp),
	}, nil
}

type searchOutput struct {
	NeedsSearch bool   `json:"needs_search"`
	SearchQuery string `json:"search_query"`
	Reason      string `json:"reason"`
}

// DecideSearch asks the model whether a message needs past experience.
func (a *Authority) DecideSearch(ctx context.Context, userMessage string) (*memorykeep.SearchDecision, error) {
	resp, err := complete(ctx, a.model, SearchPrompt(userMessage), DefaultJudgmentMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memorykeep.ErrCapabilityFailed, err)
	}

	var out searchOutput
	if err := decode(resp.Text, searchSchema, &out); err != nil {
		return nil, err
	}

	return &memorykeep.SearchDecision{
		NeedsSearch: out.NeedsSearch,
		Query:       out.SearchQuery,
		Reason:      out.Reason,
	}, nil
}
