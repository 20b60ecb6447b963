package memorykeep

import (
	"context"
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidConfig is returned when the engine configuration is invalid
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrStorageUnavailable is returned when a persistence operation failed.
	// The operation that returned it did not complete.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrInvalidRole is returned for a turn role outside user, assistant and system
	ErrInvalidRole = errors.New("invalid role")

	// ErrEmptyConversationID is returned when no conversation id is given
	ErrEmptyConversationID = errors.New("conversation id is required")

	// ErrCapabilityFailed is returned by capability implementations when the
	// model call failed. The engine recovers from it locally.
	ErrCapabilityFailed = errors.New("capability call failed")

	// ErrMalformedOutput is returned by capability implementations when the
	// model output could not be parsed. The engine recovers from it locally.
	ErrMalformedOutput = errors.New("malformed capability output")
)

// EngineError represents an error with additional context
type EngineError struct {
	Op             string         // Operation that failed
	ConversationID string         // Conversation ID if applicable
	Err            error          // Underlying error
	Context        map[string]any // Additional context
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.ConversationID != "" {
		return fmt.Sprintf("%s (conversation=%s): %v", e.Op, e.ConversationID, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// WithContext adds additional context to the error
func (e *EngineError) WithContext(key string, value any) *EngineError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// NewEngineError creates a new EngineError
func NewEngineError(op, conversationID string, err error) *EngineError {
	return &EngineError{
		Op:             op,
		ConversationID: conversationID,
		Err:            err,
	}
}

// storageError wraps a persistence failure so that it matches ErrStorageUnavailable.
func storageError(op, conversationID string, err error) error {
	if errors.Is(err, ErrStorageUnavailable) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return NewEngineError(op, conversationID, err)
	}
	return NewEngineError(op, conversationID, fmt.Errorf("%w: %v", ErrStorageUnavailable, err))
}

// IsStorageError reports whether err is a persistence failure.
func IsStorageError(err error) bool {
	return errors.Is(err, ErrStorageUnavailable)
}
