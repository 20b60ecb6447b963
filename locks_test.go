package memorykeep

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestConversationLocksSerialize(t *testing.T) {
	locks := newConversationLocks()
	ctx := context.Background()

	unlock, err := locks.lock(ctx, "c1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		unlock2, err := locks.lock(ctx, "c1")
		if err != nil {
			t.Errorf("second lock failed: %v", err)
			close(acquired)
			return
		}
		close(acquired)
		unlock2()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while the first was held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestConversationLocksIndependent(t *testing.T) {
	locks := newConversationLocks()
	ctx := context.Background()

	unlockA, err := locks.lock(ctx, "a")
	if err != nil {
		t.Fatalf("lock a failed: %v", err)
	}
	defer unlockA()

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	unlockB, err := locks.lock(ctx, "b")
	if err != nil {
		t.Fatalf("lock b blocked by a: %v", err)
	}
	unlockB()
}

func TestConversationLocksContextCanceled(t *testing.T) {
	locks := newConversationLocks()

	unlock, err := locks.lock(context.Background(), "c1")
	if err != nil {
		t.Fatalf("lock failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := locks.lock(ctx, "c1"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}

	unlock()
	unlock() // second call is a no-op

	if n := locks.size(); n != 0 {
		t.Errorf("expected no tracked conversations, got %d", n)
	}
}
