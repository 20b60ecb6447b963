package memorykeep

import (
	"context"
	"strings"
	"time"

	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/storage"
)

// MemoryKeepPrefix and MemoryKeepSuffix wrap the summary entry a memory keep injects.
const (
	MemoryKeepPrefix = "[MEMORY_KEEP: "
	MemoryKeepSuffix = "]"
)

// RenderTranscript renders entries as "role: content" lines in order.
func RenderTranscript(entries []*storage.StreamEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.Role+": "+e.Content)
	}
	return strings.Join(lines, "\n")
}

// overlapWindow returns the last n entries, or all of them when the stream is shorter.
func overlapWindow(entries []*storage.StreamEntry, n int) []*storage.StreamEntry {
	if n <= 0 {
		return nil
	}
	if n > len(entries) {
		n = len(entries)
	}
	return entries[len(entries)-n:]
}

// Consolidate runs a memory keep on a conversation regardless of its size.
//
// The stream is summarized by the sidecar, the returned patterns become
// experiences, and the stream is replaced by one system summary entry
// followed by the last OverlapCount turns. The replacement is atomic.
// A sidecar failure falls back to DefaultSummary with no patterns.
func (e *Engine) Consolidate(ctx context.Context, conversationID string) (*ConsolidationResult, error) {
	unlock, err := e.acquire(ctx, "Consolidate", conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	entries, err := e.store.GetEntries(ctx, conversationID)
	if err != nil {
		return nil, storageError("GetEntries", conversationID, err)
	}

	res, err := e.consolidate(ctx, conversationID, entries)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// consolidate performs a memory keep over the snapshot entries.
// The caller holds the conversation lock. When the replacement fails the
// returned result carries only SidecarTokens.
func (e *Engine) consolidate(ctx context.Context, conversationID string, entries []*storage.StreamEntry) (*ConsolidationResult, error) {
	start := time.Now()

	e.hookError("before_consolidation", conversationID, e.hooks.TriggerBeforeConsolidation(ctx, conversationID))

	tokensBefore := StreamTokens(entries)
	e.logger.Info("memory keep starting",
		"conversation_id", conversationID,
		"entries", len(entries),
		"stream_tokens", tokensBefore,
	)

	summary, fallback := e.summarize(ctx, conversationID, RenderTranscript(entries))
	overlap := overlapWindow(entries, e.config.OverlapCount)

	var (
		patterns []string
		resumed  []*storage.StreamEntry
	)
	err := e.store.RunInTx(ctx, func(ctx context.Context) error {
		patterns = patterns[:0]
		resumed = resumed[:0]

		for _, p := range summary.Patterns {
			if strings.TrimSpace(p) == "" {
				continue
			}
			_, err := e.store.CreateExperience(ctx, &storage.CreateExperienceParams{
				ConversationID: conversationID,
				Content:        p,
				Category:       string(CategoryPattern),
			})
			if err != nil {
				return err
			}
			patterns = append(patterns, p)
		}

		if _, err := e.store.DeleteEntries(ctx, conversationID); err != nil {
			return err
		}

		head, err := e.store.AppendEntry(ctx, &storage.AppendEntryParams{
			ConversationID: conversationID,
			Role:           string(RoleSystem),
			Content:        MemoryKeepPrefix + summary.Summary + MemoryKeepSuffix,
		})
		if err != nil {
			return err
		}
		resumed = append(resumed, head)

		for _, o := range overlap {
			entry, err := e.store.AppendEntry(ctx, &storage.AppendEntryParams{
				ConversationID: conversationID,
				Role:           o.Role,
				Content:        o.Content,
			})
			if err != nil {
				return err
			}
			resumed = append(resumed, entry)
		}
		return nil
	})
	if err != nil {
		return &ConsolidationResult{SidecarTokens: summary.TokenCost}, storageError("Consolidate", conversationID, err)
	}

	result := &ConsolidationResult{
		Summary:         summary.Summary,
		SummaryFallback: fallback,
		Patterns:        patterns,
		EntriesBefore:   len(entries),
		EntriesAfter:    len(resumed),
		TokensBefore:    tokensBefore,
		TokensAfter:     StreamTokens(resumed),
		SidecarTokens:   summary.TokenCost,
		Duration:        time.Since(start),
	}

	e.logger.Info("memory keep complete",
		"conversation_id", conversationID,
		"tokens_before", result.TokensBefore,
		"tokens_after", result.TokensAfter,
		"patterns", len(result.Patterns),
		"summary_fallback", result.SummaryFallback,
		"duration", result.Duration,
	)

	e.hookError("after_consolidation", conversationID, e.hooks.TriggerAfterConsolidation(ctx, &hooks.ConsolidationEvent{
		ConversationID:  conversationID,
		EntriesBefore:   result.EntriesBefore,
		EntriesAfter:    result.EntriesAfter,
		TokensBefore:    result.TokensBefore,
		TokensAfter:     result.TokensAfter,
		Patterns:        len(result.Patterns),
		SidecarTokens:   result.SidecarTokens,
		SummaryFallback: result.SummaryFallback,
		Duration:        result.Duration,
	}))

	return result, nil
}
