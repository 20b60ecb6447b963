package provider

import (
	"context"
	"fmt"

	"github.com/youssefsiam38/memorykeep"
)

// Sidecar implements memorykeep.Sidecar on a Model.
// A small, cheap model is enough.
type Sidecar struct {
	model Model
}

// NewSidecar creates a Sidecar that asks model.
func NewSidecar(model Model) *Sidecar {
	return &Sidecar{model: model}
}

var _ memorykeep.Sidecar = (*Sidecar)(nil)

type summaryOutput struct {
	Summary  string   `json:"summary"`
	Patterns []string `json:"patterns"`
}

// Summarize asks the model for a summary and patterns of a transcript.
func (s *Sidecar) Summarize(ctx context.Context, conversationText string) (*memorykeep.Summary, error) {
	prompt := SummaryPrompt(conversationText)

	resp, err := complete(ctx, s.model, prompt, DefaultSummaryMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", memorykeep.ErrCapabilityFailed, err)
	}

	var out summaryOutput
	if err := decode(resp.Text, summarySchema, &out); err != nil {
		return nil, err
	}

	summary := out.Summary
	if summary == "" {
		summary = memorykeep.DefaultSummary
	}
	patterns := out.Patterns
	if patterns == nil {
		patterns = []string{}
	}

	return &memorykeep.Summary{
		Summary:   summary,
		Patterns:  patterns,
		TokenCost: cost(prompt, resp),
	}, nil
}
