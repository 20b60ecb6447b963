// Package claude implements provider.Model with the Anthropic Messages API.
package claude

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/youssefsiam38/memorykeep/provider"
)

// Default models for the two capability roles.
const (
	DefaultAuthorityModel = "claude-sonnet-4-5-20250929"
	DefaultSidecarModel   = "claude-3-5-haiku-20241022"
	DefaultMaxTokens      = 1024
)

// Model is a provider.Model backed by one Claude model.
type Model struct {
	client *anthropic.Client
	model  string
}

// New creates a Model that sends requests to model through client.
func New(client *anthropic.Client, model string) *Model {
	return &Model{client: client, model: model}
}

// NewClient creates an Anthropic client for apiKey.
func NewClient(apiKey string, opts ...option.RequestOption) *anthropic.Client {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := anthropic.NewClient(opts...)
	return &client
}

var _ provider.Model = (*Model)(nil)

// Complete sends req as a single Messages call.
func (m *Model) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.model),
		MaxTokens: maxTokens,
		Messages:  convertTurns(req.Turns),
	}

	if req.System != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: req.System},
		}
	}

	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := m.client.Messages.New(ctx, params)
	if err != nil {
		return nil, err
	}

	var text strings.Builder
	for _, block := range message.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, errors.New("empty response from model")
	}

	return &provider.Response{
		Text:         text.String(),
		InputTokens:  int(message.Usage.InputTokens),
		OutputTokens: int(message.Usage.OutputTokens),
	}, nil
}

// convertTurns converts turns to Anthropic messages, merging consecutive
// turns of the same role into one message with several text blocks.
func convertTurns(turns []provider.Turn) []anthropic.MessageParam {
	var (
		out   []anthropic.MessageParam
		role  provider.TurnRole
		batch []anthropic.ContentBlockParamUnion
	)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		if role == provider.TurnAssistant {
			out = append(out, anthropic.NewAssistantMessage(batch...))
		} else {
			out = append(out, anthropic.NewUserMessage(batch...))
		}
		batch = nil
	}

	for _, t := range turns {
		if t.Role != role {
			flush()
			role = t.Role
		}
		batch = append(batch, anthropic.NewTextBlock(t.Text))
	}
	flush()

	return out
}
