package memorykeep

import (
	"context"
)

// Assemble builds the prompt for the next reply, in this order:
//
//  1. the directive documents
//  2. the domain profile, if any
//  3. retrieved experience, if userMessage is not empty and anything relevant was found
//  4. the stream, oldest first
//
// Every block but the stream has the system role.
func (e *Engine) Assemble(ctx context.Context, conversationID, userMessage string) ([]Message, error) {
	unlock, err := e.acquire(ctx, "Assemble", conversationID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var messages []Message
	if e.directives != nil {
		for _, d := range e.directives.Load(ctx) {
			messages = append(messages, Message{Role: RoleSystem, Content: d})
		}
	}

	if e.domain != nil {
		profile, err := e.domain.ProfileText(ctx, conversationID)
		if err != nil {
			return nil, storageError("ProfileText", conversationID, err)
		}
		if profile != "" {
			messages = append(messages, Message{Role: RoleSystem, Content: profile})
		}
	}

	if userMessage != "" {
		retrieval, err := e.Retrieve(ctx, conversationID, userMessage)
		if err != nil {
			return nil, err
		}
		if retrieval.Block != "" {
			messages = append(messages, Message{Role: RoleSystem, Content: retrieval.Block})
		}
	}

	entries, err := e.store.GetEntries(ctx, conversationID)
	if err != nil {
		return nil, storageError("GetEntries", conversationID, err)
	}
	for _, entry := range entries {
		messages = append(messages, Message{Role: Role(entry.Role), Content: entry.Content})
	}

	return messages, nil
}
