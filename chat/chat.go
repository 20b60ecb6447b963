// Package chat runs one conversational exchange through the memory engine.
package chat

import (
	"bytes"
	"context"
	"fmt"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/youssefsiam38/memorykeep"
	"github.com/yuin/goldmark"
)

// Reply is the outcome of one exchange.
type Reply struct {
	ConversationID string            `json:"conversation_id"`
	Text           string            `json:"reply"`
	HTML           string            `json:"reply_html"`
	Stats          *memorykeep.Stats `json:"stats"`

	// GenerationFailed reports that Text is an error placeholder.
	GenerationFailed bool `json:"generation_failed,omitempty"`

	// Consolidated reports whether either turn triggered a memory keep.
	Consolidated bool `json:"consolidated"`
}

// Service threads conversations through the engine and a Responder.
//
// Token usage is tracked per conversation for the life of the Service.
type Service struct {
	engine    *memorykeep.Engine
	responder memorykeep.Responder
	logger    memorykeep.Logger
	markdown  goldmark.Markdown
	policy    *bluemonday.Policy

	mu    sync.Mutex
	usage map[string]memorykeep.Usage
}

// NewService creates a Service.
func NewService(engine *memorykeep.Engine, responder memorykeep.Responder, logger memorykeep.Logger) *Service {
	if logger == nil {
		logger = nopLogger{}
	}
	return &Service{
		engine:    engine,
		responder: responder,
		logger:    logger,
		markdown:  goldmark.New(),
		policy:    bluemonday.UGCPolicy(),
		usage:     make(map[string]memorykeep.Usage),
	}
}

// Usage returns the accumulated usage of a conversation.
func (s *Service) Usage(conversationID string) memorykeep.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage[conversationID]
}

// merge adds the costs recorded in next relative to prev.
func (s *Service) merge(conversationID string, prev, next memorykeep.Usage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.usage[conversationID]
	u.StreamTokens = next.StreamTokens
	u.AuthorityTokens += next.AuthorityTokens - prev.AuthorityTokens
	u.SifterTokens += next.SifterTokens - prev.SifterTokens
	s.usage[conversationID] = u
}

// Send ingests message, generates a reply from the assembled context and
// ingests the reply.
//
// A failed generation does not fail Send: the reply text becomes
// "[Cloud API Error: ...]" and is stored like any other reply. Storage
// failures are returned.
func (s *Service) Send(ctx context.Context, conversationID, message string) (*Reply, error) {
	usage := s.Usage(conversationID)

	in, err := s.engine.Intake(ctx, conversationID, usage, memorykeep.RoleUser, message)
	if in != nil {
		s.merge(conversationID, usage, in.Usage)
	}
	if err != nil {
		return nil, err
	}
	usage = in.Usage

	prompt, err := s.engine.Assemble(ctx, conversationID, message)
	if err != nil {
		return nil, err
	}

	reply := &Reply{ConversationID: conversationID, Consolidated: in.Consolidation != nil}
	text, err := s.responder.Generate(ctx, prompt)
	if err != nil {
		s.logger.Warn("reply generation failed", "conversation_id", conversationID, "error", err)
		text = fmt.Sprintf("[Cloud API Error: %v]", err)
		reply.GenerationFailed = true
	}
	reply.Text = text

	out, err := s.engine.Intake(ctx, conversationID, usage, memorykeep.RoleAssistant, text)
	if out != nil {
		s.merge(conversationID, usage, out.Usage)
	}
	if err != nil {
		return nil, err
	}
	reply.Consolidated = reply.Consolidated || out.Consolidation != nil

	reply.Stats, err = s.engine.Stats(ctx, conversationID, s.Usage(conversationID))
	if err != nil {
		return nil, err
	}

	reply.HTML = s.RenderHTML(text)
	return reply, nil
}

// Stats reports the conversation's occupancy with the usage tracked so far.
func (s *Service) Stats(ctx context.Context, conversationID string) (*memorykeep.Stats, error) {
	return s.engine.Stats(ctx, conversationID, s.Usage(conversationID))
}

// Consolidate forces a memory keep and records its cost.
func (s *Service) Consolidate(ctx context.Context, conversationID string) (*memorykeep.ConsolidationResult, error) {
	res, err := s.engine.Consolidate(ctx, conversationID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	u := s.usage[conversationID]
	u.StreamTokens = res.TokensAfter
	u.SifterTokens += res.SidecarTokens
	s.usage[conversationID] = u
	s.mu.Unlock()

	return res, nil
}

// RenderHTML converts a markdown reply to sanitized HTML.
func (s *Service) RenderHTML(text string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(text), &buf); err != nil {
		return s.policy.Sanitize(text)
	}
	return s.policy.Sanitize(buf.String())
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...any) {}
func (nopLogger) Info(msg string, args ...any)  {}
func (nopLogger) Warn(msg string, args ...any)  {}
func (nopLogger) Error(msg string, args ...any) {}
