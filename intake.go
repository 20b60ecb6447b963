package memorykeep

import (
	"context"
	"strings"

	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/storage"
)

// Intake ingests one turn.
//
// The turn is appended before anything else. User turns are then judged by
// the authority; an important one becomes an experience. Finally the stream
// is re-measured and, if it is strictly above the trigger threshold, a
// memory keep runs before Intake returns.
//
// usage is the caller's running accounting; the result carries the updated
// copy. Capability failures never fail Intake. Storage failures do, with an
// error matching ErrStorageUnavailable. Once the turn is appended, a failing
// Intake still returns its result so the caller can keep the costs already
// paid; Consolidation is nil in that case.
func (e *Engine) Intake(ctx context.Context, conversationID string, usage Usage, role Role, content string) (*IntakeResult, error) {
	if !role.Valid() {
		return nil, NewEngineError("Intake", conversationID, ErrInvalidRole).WithContext("role", string(role))
	}

	unlock, err := e.acquire(ctx, "Intake", conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entry, err := e.store.AppendEntry(ctx, &storage.AppendEntryParams{
		ConversationID: conversationID,
		Role:           string(role),
		Content:        content,
	})
	if err != nil {
		return nil, storageError("AppendEntry", conversationID, err)
	}

	result := &IntakeResult{EntryID: entry.ID, Usage: usage}

	if role == RoleUser {
		judgment := e.judgeImportance(ctx, conversationID, role, content)
		result.Usage.AuthorityTokens += judgment.TokenCost

		if judgment.Important && strings.TrimSpace(judgment.Fact) != "" {
			_, err := e.store.CreateExperience(ctx, &storage.CreateExperienceParams{
				ConversationID: conversationID,
				Content:        judgment.Fact,
				Category:       string(judgment.Category),
			})
			if err != nil {
				return result, storageError("CreateExperience", conversationID, err)
			}
			result.Important = true
		}
	}

	entries, err := e.store.GetEntries(ctx, conversationID)
	if err != nil {
		return result, storageError("GetEntries", conversationID, err)
	}
	result.Usage.StreamTokens = StreamTokens(entries)

	if e.config.ShouldConsolidate(result.Usage.StreamTokens) {
		e.logger.Debug("stream above threshold",
			"conversation_id", conversationID,
			"stream_tokens", result.Usage.StreamTokens,
			"threshold", e.config.TriggerThreshold(),
		)

		cons, err := e.consolidate(ctx, conversationID, entries)
		if err != nil {
			if cons != nil {
				result.Usage.SifterTokens += cons.SidecarTokens
			}
			return result, err
		}
		result.Consolidation = cons
		result.Usage.SifterTokens += cons.SidecarTokens
		result.Usage.StreamTokens = cons.TokensAfter
	}

	e.hookError("intake", conversationID, e.hooks.TriggerIntake(ctx, &hooks.IntakeEvent{
		ConversationID: conversationID,
		Role:           string(role),
		Important:      result.Important,
		StreamTokens:   result.Usage.StreamTokens,
		Consolidated:   result.Consolidation != nil,
	}))

	return result, nil
}
