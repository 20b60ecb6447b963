// Package hooks lets callers observe the memory engine.
//
// Hooks run synchronously on the goroutine that performs the operation.
// The engine logs hook errors and carries on; a hook can never block an
// intake or a consolidation.
package hooks

import (
	"context"
	"sync"
	"time"
)

// IntakeEvent describes one ingested turn.
type IntakeEvent struct {
	ConversationID string
	Role           string
	// Important reports whether the turn produced a new experience.
	Important    bool
	StreamTokens int
	// Consolidated reports whether the turn triggered a memory keep.
	Consolidated bool
}

// ConsolidationEvent describes a finished memory keep.
type ConsolidationEvent struct {
	ConversationID  string
	EntriesBefore   int
	EntriesAfter    int
	TokensBefore    int
	TokensAfter     int
	Patterns        int
	SidecarTokens   int
	SummaryFallback bool
	Duration        time.Duration
}

// RetrievalEvent describes one experience lookup.
type RetrievalEvent struct {
	ConversationID string
	Searched       bool
	Query          string
	Reason         string
	Results        int
}

// IntakeHook is called after a turn has been ingested
type IntakeHook func(ctx context.Context, event *IntakeEvent) error

// BeforeConsolidationHook is called before a memory keep starts
type BeforeConsolidationHook func(ctx context.Context, conversationID string) error

// AfterConsolidationHook is called after a memory keep committed
type AfterConsolidationHook func(ctx context.Context, event *ConsolidationEvent) error

// RetrievalHook is called after the retrieval decision and search
type RetrievalHook func(ctx context.Context, event *RetrievalEvent) error

// Registry holds all registered hooks
type Registry struct {
	mu                  sync.RWMutex
	intake              []IntakeHook
	beforeConsolidation []BeforeConsolidationHook
	afterConsolidation  []AfterConsolidationHook
	retrieval           []RetrievalHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{}
}

// OnIntake registers a hook to be called after each intake
func (r *Registry) OnIntake(hook IntakeHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intake = append(r.intake, hook)
}

// OnBeforeConsolidation registers a hook to be called before a memory keep
func (r *Registry) OnBeforeConsolidation(hook BeforeConsolidationHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeConsolidation = append(r.beforeConsolidation, hook)
}

// OnAfterConsolidation registers a hook to be called after a memory keep
func (r *Registry) OnAfterConsolidation(hook AfterConsolidationHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterConsolidation = append(r.afterConsolidation, hook)
}

// OnRetrieval registers a hook to be called after retrieval
func (r *Registry) OnRetrieval(hook RetrievalHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retrieval = append(r.retrieval, hook)
}

// TriggerIntake calls all registered intake hooks, stopping at the first error
func (r *Registry) TriggerIntake(ctx context.Context, event *IntakeEvent) error {
	r.mu.RLock()
	hooks := make([]IntakeHook, len(r.intake))
	copy(hooks, r.intake)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeConsolidation calls all registered before-consolidation hooks
func (r *Registry) TriggerBeforeConsolidation(ctx context.Context, conversationID string) error {
	r.mu.RLock()
	hooks := make([]BeforeConsolidationHook, len(r.beforeConsolidation))
	copy(hooks, r.beforeConsolidation)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, conversationID); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterConsolidation calls all registered after-consolidation hooks
func (r *Registry) TriggerAfterConsolidation(ctx context.Context, event *ConsolidationEvent) error {
	r.mu.RLock()
	hooks := make([]AfterConsolidationHook, len(r.afterConsolidation))
	copy(hooks, r.afterConsolidation)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// TriggerRetrieval calls all registered retrieval hooks
func (r *Registry) TriggerRetrieval(ctx context.Context, event *RetrievalEvent) error {
	r.mu.RLock()
	hooks := make([]RetrievalHook, len(r.retrieval))
	copy(hooks, r.retrieval)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, event); err != nil {
			return err
		}
	}
	return nil
}
