package provider

import (
	"context"
	"strings"

	"github.com/youssefsiam38/memorykeep"
)

// Responder implements memorykeep.Responder on a Model.
type Responder struct {
	model     Model
	maxTokens int
}

// NewResponder creates a Responder that asks model.
func NewResponder(model Model) *Responder {
	return &Responder{model: model, maxTokens: DefaultReplyMaxTokens}
}

var _ memorykeep.Responder = (*Responder)(nil)

// BuildRequest folds the system messages of an assembled prompt into the
// system instruction, one per line, and keeps the rest as turns in order.
// Assistant messages before the first user turn are folded into the system
// instruction as "assistant: ..." lines so the turns always open with the
// user, as the Messages API requires.
func BuildRequest(messages []memorykeep.Message) *Request {
	var (
		system strings.Builder
		turns  []Turn
	)
	for _, m := range messages {
		switch m.Role {
		case memorykeep.RoleSystem:
			system.WriteString(m.Content)
			system.WriteString("\n")
		case memorykeep.RoleAssistant:
			if len(turns) == 0 {
				system.WriteString(string(memorykeep.RoleAssistant) + ": " + m.Content)
				system.WriteString("\n")
				continue
			}
			turns = append(turns, Turn{Role: TurnAssistant, Text: m.Content})
		default:
			turns = append(turns, Turn{Role: TurnUser, Text: m.Content})
		}
	}
	return &Request{System: system.String(), Turns: turns}
}

// Generate replies to an assembled prompt. A prompt without turns yields "".
func (r *Responder) Generate(ctx context.Context, messages []memorykeep.Message) (string, error) {
	req := BuildRequest(messages)
	if len(req.Turns) == 0 {
		return "", nil
	}
	req.MaxTokens = r.maxTokens

	resp, err := r.model.Complete(ctx, req)
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
