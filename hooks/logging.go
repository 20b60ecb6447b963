package hooks

import (
	"context"
)

// Logger is the structured logger used by LoggingHooks.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// Register attaches every logging hook to r.
func (h *LoggingHooks) Register(r *Registry) {
	r.OnIntake(h.Intake)
	r.OnBeforeConsolidation(h.BeforeConsolidation)
	r.OnAfterConsolidation(h.AfterConsolidation)
	r.OnRetrieval(h.Retrieval)
}

// Intake logs each ingested turn
func (h *LoggingHooks) Intake(ctx context.Context, event *IntakeEvent) error {
	h.logger.Debug("turn ingested",
		"conversation_id", event.ConversationID,
		"role", event.Role,
		"important", event.Important,
		"stream_tokens", event.StreamTokens,
		"consolidated", event.Consolidated,
	)
	return nil
}

// BeforeConsolidation logs the start of a memory keep
func (h *LoggingHooks) BeforeConsolidation(ctx context.Context, conversationID string) error {
	h.logger.Info("memory keep starting", "conversation_id", conversationID)
	return nil
}

// AfterConsolidation logs the outcome of a memory keep
func (h *LoggingHooks) AfterConsolidation(ctx context.Context, event *ConsolidationEvent) error {
	reduction := float64(0)
	if event.TokensBefore > 0 {
		reduction = float64(event.TokensBefore-event.TokensAfter) / float64(event.TokensBefore) * 100
	}

	h.logger.Info("memory keep complete",
		"conversation_id", event.ConversationID,
		"tokens_before", event.TokensBefore,
		"tokens_after", event.TokensAfter,
		"reduction_pct", reduction,
		"entries_before", event.EntriesBefore,
		"entries_after", event.EntriesAfter,
		"patterns", event.Patterns,
		"summary_fallback", event.SummaryFallback,
		"duration_ms", event.Duration.Milliseconds(),
	)
	return nil
}

// Retrieval logs retrieval decisions
func (h *LoggingHooks) Retrieval(ctx context.Context, event *RetrievalEvent) error {
	if !event.Searched {
		h.logger.Debug("experience search skipped", "conversation_id", event.ConversationID)
		return nil
	}
	h.logger.Debug("experience search",
		"conversation_id", event.ConversationID,
		"query", event.Query,
		"reason", event.Reason,
		"results", event.Results,
	)
	return nil
}
