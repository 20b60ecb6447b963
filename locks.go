package memorykeep

import (
	"context"
	"sync"
)

// conversationLocks serializes work per conversation.
// Entries are dropped once nobody holds or waits for them.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*conversationLock
}

type conversationLock struct {
	sem  chan struct{}
	refs int
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*conversationLock)}
}

// lock blocks until the conversation is free or ctx is done.
func (l *conversationLocks) lock(ctx context.Context, conversationID string) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	l.mu.Lock()
	cl, ok := l.locks[conversationID]
	if !ok {
		cl = &conversationLock{sem: make(chan struct{}, 1)}
		l.locks[conversationID] = cl
	}
	cl.refs++
	l.mu.Unlock()

	select {
	case cl.sem <- struct{}{}:
	case <-ctx.Done():
		l.release(conversationID, cl)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-cl.sem
			l.release(conversationID, cl)
		})
	}, nil
}

func (l *conversationLocks) release(conversationID string, cl *conversationLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	cl.refs--
	if cl.refs == 0 {
		delete(l.locks, conversationID)
	}
}

// size returns the number of tracked conversations.
func (l *conversationLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
