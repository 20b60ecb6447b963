package memorykeep

import (
	"strings"

	"github.com/youssefsiam38/memorykeep/storage"
)

// TokensPerWord is the fixed multiplier of the token heuristic.
const TokensPerWord = 1.3

// EstimateTokens approximates the token count of text as whitespace
// separated words times TokensPerWord, truncated.
func EstimateTokens(text string) int {
	return int(float64(len(strings.Fields(text))) * TokensPerWord)
}

// StreamTokens estimates the tokens of a stream. Contents are concatenated
// without a separator, so words at entry boundaries merge.
func StreamTokens(entries []*storage.StreamEntry) int {
	var b strings.Builder
	for _, e := range entries {
		b.WriteString(e.Content)
	}
	return EstimateTokens(b.String())
}
