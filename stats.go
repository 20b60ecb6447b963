package memorykeep

import (
	"context"
	"math"
)

// Stats reports the conversation's stream occupancy together with the
// capability costs recorded in usage.
func (e *Engine) Stats(ctx context.Context, conversationID string, usage Usage) (*Stats, error) {
	if conversationID == "" {
		return nil, NewEngineError("Stats", "", ErrEmptyConversationID)
	}

	entries, err := e.store.GetEntries(ctx, conversationID)
	if err != nil {
		return nil, storageError("GetEntries", conversationID, err)
	}
	experiences, err := e.store.GetExperiences(ctx, conversationID)
	if err != nil {
		return nil, storageError("GetExperiences", conversationID, err)
	}

	stream := StreamTokens(entries)
	return &Stats{
		StreamTokens:    stream,
		AuthorityTokens: usage.AuthorityTokens,
		SifterTokens:    usage.SifterTokens,
		TotalTokens:     stream + usage.AuthorityTokens + usage.SifterTokens,
		Capacity:        e.config.Capacity,
		ThresholdPct:    e.config.FlushThreshold,
		ThresholdTokens: e.config.ThresholdTokens(),
		CapacityPct:     math.Round(float64(stream)/float64(e.config.Capacity)*1000) / 10,
		Entries:         len(entries),
		Experiences:     len(experiences),
	}, nil
}
