package memorykeep

import (
	"context"
	"fmt"

	"github.com/youssefsiam38/memorykeep/domain"
	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/storage"
)

// Domain renders the structured facts known about a conversation's subject.
type Domain interface {
	ProfileText(ctx context.Context, conversationID string) (string, error)
}

// Engine is the context window memory engine. It is safe for concurrent use.
type Engine struct {
	store      storage.Store
	authority  Authority
	sidecar    Sidecar
	config     *Config
	logger     Logger
	domain     Domain
	directives Directives
	hooks      *hooks.Registry
	locks      *conversationLocks
}

// New creates an Engine.
//
// A nil authority or sidecar behaves like one that always fails: importance
// judgments are negative, searches never run and memory keeps use
// DefaultSummary. Without WithDomain the profile is rendered from the
// domain facts in store.
func New(store storage.Store, authority Authority, sidecar Sidecar, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, NewEngineError("New", "", fmt.Errorf("%w: store is required", ErrInvalidConfig))
	}

	e := &Engine{
		store:      store,
		authority:  authority,
		sidecar:    sidecar,
		config:     DefaultConfig(),
		logger:     noopLogger{},
		domain:     domain.New(store),
		directives: StaticDirectives(nil),
		hooks:      hooks.NewRegistry(),
		locks:      newConversationLocks(),
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, NewEngineError("New", "", err)
		}
	}

	return e, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() Config {
	return *e.config
}

// Store returns the underlying store.
func (e *Engine) Store() storage.Store {
	return e.store
}

// Hooks returns the observer registry.
func (e *Engine) Hooks() *hooks.Registry {
	return e.hooks
}

// acquire takes the conversation lock.
func (e *Engine) acquire(ctx context.Context, op, conversationID string) (func(), error) {
	if conversationID == "" {
		return nil, NewEngineError(op, "", ErrEmptyConversationID)
	}
	unlock, err := e.locks.lock(ctx, conversationID)
	if err != nil {
		return nil, NewEngineError(op, conversationID, err)
	}
	return unlock, nil
}

// judgeImportance asks the authority about a turn, degrading to a neutral verdict.
func (e *Engine) judgeImportance(ctx context.Context, conversationID string, role Role, content string) *ImportanceJudgment {
	if e.authority == nil {
		return neutralJudgment()
	}

	judgment, err := e.authority.JudgeImportance(ctx, role, content)
	if err != nil || judgment == nil {
		e.logger.Warn("importance judgment unavailable",
			"conversation_id", conversationID,
			"error", err,
		)
		return neutralJudgment()
	}

	judgment.Category = NormalizeCategory(string(judgment.Category))
	if judgment.TokenCost < 0 {
		judgment.TokenCost = 0
	}
	return judgment
}

// decideSearch asks the authority whether a message needs past experience.
func (e *Engine) decideSearch(ctx context.Context, conversationID, userMessage string) *SearchDecision {
	if e.authority == nil {
		return &SearchDecision{}
	}

	decision, err := e.authority.DecideSearch(ctx, userMessage)
	if err != nil || decision == nil {
		e.logger.Warn("search decision unavailable",
			"conversation_id", conversationID,
			"error", err,
		)
		return &SearchDecision{}
	}
	return decision
}

// summarize asks the sidecar to digest a transcript, degrading to DefaultSummary.
func (e *Engine) summarize(ctx context.Context, conversationID, transcript string) (*Summary, bool) {
	if e.sidecar == nil || transcript == "" {
		return neutralSummary(), true
	}

	summary, err := e.sidecar.Summarize(ctx, transcript)
	if err != nil || summary == nil {
		e.logger.Warn("summarization unavailable, using default summary",
			"conversation_id", conversationID,
			"error", err,
		)
		return neutralSummary(), true
	}

	if summary.Summary == "" {
		summary.Summary = DefaultSummary
	}
	if summary.TokenCost < 0 {
		summary.TokenCost = 0
	}
	return summary, false
}

// hookError logs a failed observer without interrupting the operation.
func (e *Engine) hookError(hook, conversationID string, err error) {
	if err != nil {
		e.logger.Error("hook failed", "hook", hook, "conversation_id", conversationID, "error", err)
	}
}
