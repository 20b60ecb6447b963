package memorykeep

import (
	"context"
	"sort"
	"strings"

	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/storage"
)

// PastExperienceHeader introduces the retrieved-experience block.
const PastExperienceHeader = "\n[PAST EXPERIENCE MEMORY]:\n"

// Minimum relevance for a ranked candidate to be kept: at least
// MinKeywordMatches matching keywords, or at least MinConfidence of the
// query's keywords.
const (
	MinKeywordMatches = 2
	MinConfidence     = 0.5
)

// RetrievalResult is the outcome of one experience lookup.
type RetrievalResult struct {
	// Decision is the authority's search decision.
	Decision *SearchDecision

	// Memories are the kept experience contents in ranked order.
	Memories []string

	// Block is Memories formatted for the prompt, empty when there are none.
	Block string
}

// ScoredExperience is an experience with its keyword match count.
type ScoredExperience struct {
	Experience *storage.Experience
	Matches    int
}

// Keywords splits a query on whitespace into lowercase keywords.
// Duplicates are kept and each counts separately.
func Keywords(query string) []string {
	words := strings.Fields(query)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// ScoreExperiences counts, for every experience, how many keywords occur in
// its content case-insensitively, drops those with no match, and sorts the
// rest by matches descending. Equal scores keep creation order.
func ScoreExperiences(keywords []string, experiences []*storage.Experience) []ScoredExperience {
	if len(keywords) == 0 {
		return nil
	}

	var scored []ScoredExperience
	for _, exp := range experiences {
		content := strings.ToLower(exp.Content)
		matches := 0
		for _, k := range keywords {
			if strings.Contains(content, k) {
				matches++
			}
		}
		if matches > 0 {
			scored = append(scored, ScoredExperience{Experience: exp, Matches: matches})
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Matches > scored[j].Matches
	})
	return scored
}

// RankExperiences returns the contents of the experiences relevant to query.
//
// At most limit ranked candidates are considered, kept or not. A candidate
// is kept when it matches at least MinKeywordMatches keywords or at least
// MinConfidence of them.
func RankExperiences(query string, experiences []*storage.Experience, limit int) []string {
	keywords := Keywords(query)
	scored := ScoreExperiences(keywords, experiences)

	var kept []string
	for i, s := range scored {
		if i >= limit {
			break
		}
		confidence := float64(s.Matches) / float64(len(keywords))
		if s.Matches >= MinKeywordMatches || confidence >= MinConfidence {
			kept = append(kept, s.Experience.Content)
		}
	}
	return kept
}

// FormatMemories renders memories as a bulleted block under PastExperienceHeader.
func FormatMemories(memories []string) string {
	if len(memories) == 0 {
		return ""
	}
	lines := make([]string, len(memories))
	for i, m := range memories {
		lines[i] = "- " + m
	}
	return PastExperienceHeader + strings.Join(lines, "\n")
}

// Retrieve asks the authority whether userMessage needs past experience
// and, if so, searches the conversation's experiences.
//
// An unavailable authority or a negative decision yields an empty result.
// Only storage failures are returned as errors.
func (e *Engine) Retrieve(ctx context.Context, conversationID, userMessage string) (*RetrievalResult, error) {
	if conversationID == "" {
		return nil, NewEngineError("Retrieve", "", ErrEmptyConversationID)
	}

	decision := e.decideSearch(ctx, conversationID, userMessage)
	result := &RetrievalResult{Decision: decision}

	searched := decision.NeedsSearch && strings.TrimSpace(decision.Query) != ""
	if searched {
		experiences, err := e.store.GetExperiences(ctx, conversationID)
		if err != nil {
			return nil, storageError("GetExperiences", conversationID, err)
		}
		result.Memories = RankExperiences(decision.Query, experiences, e.config.RetrievalLimit)
		result.Block = FormatMemories(result.Memories)
	}

	e.hookError("retrieval", conversationID, e.hooks.TriggerRetrieval(ctx, &hooks.RetrievalEvent{
		ConversationID: conversationID,
		Searched:       searched,
		Query:          decision.Query,
		Reason:         decision.Reason,
		Results:        len(result.Memories),
	}))

	return result, nil
}
