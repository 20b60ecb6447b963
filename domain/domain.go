// Package domain manages the structured key/value facts known about the
// subject of a conversation and renders them for the prompt.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/youssefsiam38/memorykeep/storage"
)

// ProfileHeader introduces the domain block of a prompt.
const ProfileHeader = "\n[USER DOMAIN DATA]:\n"

// ErrEmptyKey is returned when a fact has no key.
var ErrEmptyKey = errors.New("fact key is required")

// Service reads and writes domain facts.
type Service struct {
	store storage.Store
}

// New creates a Service backed by store.
func New(store storage.Store) *Service {
	return &Service{store: store}
}

// ProfileText renders the conversation's facts as "- key: value" lines
// under ProfileHeader. It returns "" when there are no facts.
func (s *Service) ProfileText(ctx context.Context, conversationID string) (string, error) {
	facts, err := s.store.GetDomainFacts(ctx, conversationID)
	if err != nil {
		return "", err
	}
	return Render(facts), nil
}

// Render formats facts the way ProfileText does.
func Render(facts []*storage.DomainFact) string {
	if len(facts) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(ProfileHeader)
	for _, f := range facts {
		fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Value)
	}
	return b.String()
}

// UpdateFact creates or replaces one fact.
func (s *Service) UpdateFact(ctx context.Context, conversationID, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	return s.store.UpsertDomainFact(ctx, conversationID, key, value)
}

// Seed writes several facts in one transaction, in slice order.
func (s *Service) Seed(ctx context.Context, conversationID string, facts []Fact) error {
	return s.store.RunInTx(ctx, func(ctx context.Context) error {
		for _, f := range facts {
			if err := s.UpdateFact(ctx, conversationID, f.Key, f.Value); err != nil {
				return fmt.Errorf("seed %q: %w", f.Key, err)
			}
		}
		return nil
	})
}

// Fact is a key/value pair to seed.
type Fact struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Facts returns the conversation's facts as a map.
func (s *Service) Facts(ctx context.Context, conversationID string) (map[string]string, error) {
	facts, err := s.store.GetDomainFacts(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(facts))
	for _, f := range facts {
		out[f.Key] = f.Value
	}
	return out, nil
}
