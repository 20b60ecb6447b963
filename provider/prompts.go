package provider

import (
	"fmt"

	"github.com/youssefsiam38/memorykeep"
)

// ImportancePrompt asks whether a turn holds something worth keeping.
func ImportancePrompt(role memorykeep.Role, content string) string {
	return fmt.Sprintf(`[ROLE: INTAKE AUTHORITY]
You decide what enters long-term memory. Read this %s message and decide
whether it holds a fact, a preference or a recurring trait worth keeping.

Message: %q

Answer with one JSON object and nothing else:
{
  "important": true | false,
  "category": "preference" | "fact" | "pattern" | "",
  "fact": "the fact as one short sentence, empty when not important",
  "reason": "why it matters"
}`, role, content)
}

// SearchPrompt asks whether a message needs past experience.
func SearchPrompt(userMessage string) string {
	return fmt.Sprintf(`[ROLE: RETRIEVAL AUTHORITY]
Read the user message. Decide whether answering it well needs something
from your experience memory (facts and patterns from earlier conversation).

User message: %q

Answer with one JSON object and nothing else:
{
  "needs_search": true | false,
  "search_query": "keywords to search for, empty when no search is needed",
  "reason": "why the memory is or is not needed"
}`, userMessage)
}

// SummaryPrompt asks for a digest of a conversation window.
func SummaryPrompt(conversationText string) string {
	return fmt.Sprintf(`[ROLE: SIDECAR OBSERVER]
The conversation window below is about to be flushed from working memory.
1. Note recurring user traits or structural patterns that should survive.
2. Write a short summary of where the conversation stands.

Conversation:
%s

Answer with one JSON object and nothing else:
{
  "summary": "summary of the conversation state",
  "patterns": ["pattern 1", "pattern 2"]
}`, conversationText)
}
