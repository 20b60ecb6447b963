// Package gemini implements provider.Model with the Google Gen AI SDK.
package gemini

import (
	"context"
	"errors"
	"fmt"

	"github.com/youssefsiam38/memorykeep/provider"
	"google.golang.org/genai"
)

// Default models for the two capability roles.
const (
	DefaultAuthorityModel = "gemma-3-27b-it"
	DefaultSidecarModel   = "gemma-3-4b-it"
)

// Model is a provider.Model backed by one Gemini or Gemma model.
type Model struct {
	client *genai.Client
	model  string

	// foldSystem sends the system instruction as the opening user turn,
	// for models that reject system instructions.
	foldSystem bool
}

// Option configures a Model.
type Option func(*Model)

// WithFoldedSystem sends the system instruction as part of the conversation.
func WithFoldedSystem() Option {
	return func(m *Model) {
		m.foldSystem = true
	}
}

// NewClient creates a Gen AI client for the Gemini API.
func NewClient(ctx context.Context, apiKey string, httpOptions genai.HTTPOptions) (*genai.Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOptions,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return client, nil
}

// New creates a Model that sends requests to model through client.
func New(client *genai.Client, model string, opts ...Option) *Model {
	m := &Model{client: client, model: model}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

var _ provider.Model = (*Model)(nil)

// Complete sends req as a single GenerateContent call.
func (m *Model) Complete(ctx context.Context, req *provider.Request) (*provider.Response, error) {
	contents := make([]*genai.Content, 0, len(req.Turns)+1)
	config := &genai.GenerateContentConfig{}

	if req.System != "" {
		if m.foldSystem {
			contents = append(contents, genai.NewContentFromText(req.System, genai.RoleUser))
		} else {
			config.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
		}
	}

	for _, t := range req.Turns {
		role := genai.RoleUser
		if t.Role == provider.TurnAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(t.Text, genai.Role(role)))
	}

	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		temp := float32(*req.Temperature)
		config.Temperature = &temp
	}

	result, err := m.client.Models.GenerateContent(ctx, m.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}

	text := result.Text()
	if text == "" {
		return nil, errors.New("empty response from model")
	}

	resp := &provider.Response{Text: text}
	if result.UsageMetadata != nil {
		resp.InputTokens = int(result.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(result.UsageMetadata.CandidatesTokenCount)
	}
	return resp, nil
}
