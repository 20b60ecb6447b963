// Package provider implements the memorykeep capabilities on top of a
// chat-completion model.
//
// Authority, Sidecar and Responder own the prompts and the parsing of model
// output; a Model only has to turn a Request into text. Implementations for
// Claude and Gemini live in the claude and gemini subpackages.
package provider

import (
	"context"
	"strings"

	"github.com/youssefsiam38/memorykeep"
)

// TurnRole is the author of a Turn.
type TurnRole string

const (
	TurnUser      TurnRole = "user"
	TurnAssistant TurnRole = "assistant"
)

// Turn is one non-system message of a Request.
type Turn struct {
	Role TurnRole
	Text string
}

// Request is a single completion request.
type Request struct {
	// System is the system instruction, empty for none.
	System string

	// Turns is the conversation, oldest first. The last turn is the prompt.
	Turns []Turn

	// MaxTokens caps the response length. Zero lets the model decide.
	MaxTokens int

	// Temperature is the sampling temperature, nil for the model default.
	Temperature *float64
}

// Response is a completion result.
type Response struct {
	Text string

	// InputTokens and OutputTokens are the usage reported by the API, zero
	// when it reported none.
	InputTokens  int
	OutputTokens int
}

// Model completes a Request.
type Model interface {
	Complete(ctx context.Context, req *Request) (*Response, error)
}

// ModelFunc adapts a function to Model.
type ModelFunc func(ctx context.Context, req *Request) (*Response, error)

// Complete calls f.
func (f ModelFunc) Complete(ctx context.Context, req *Request) (*Response, error) {
	return f(ctx, req)
}

// EstimateCost approximates what a call cost as the words of prompt and
// response times memorykeep.TokensPerWord.
func EstimateCost(prompt, response string) int {
	words := len(strings.Fields(prompt)) + len(strings.Fields(response))
	return int(float64(words) * memorykeep.TokensPerWord)
}

// cost prefers the usage reported by the API.
func cost(prompt string, resp *Response) int {
	if reported := resp.InputTokens + resp.OutputTokens; reported > 0 {
		return reported
	}
	return EstimateCost(prompt, resp.Text)
}

// complete sends a single user prompt.
func complete(ctx context.Context, model Model, prompt string, maxTokens int) (*Response, error) {
	return model.Complete(ctx, &Request{
		Turns:     []Turn{{Role: TurnUser, Text: prompt}},
		MaxTokens: maxTokens,
	})
}
