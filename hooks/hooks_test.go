package hooks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	if r == nil {
		t.Fatal("NewRegistry returned nil")
	}
	if err := r.TriggerIntake(context.Background(), &IntakeEvent{}); err != nil {
		t.Errorf("empty registry returned error: %v", err)
	}
}

func TestOnIntake(t *testing.T) {
	r := NewRegistry()
	var got *IntakeEvent

	r.OnIntake(func(ctx context.Context, event *IntakeEvent) error {
		got = event
		return nil
	})

	event := &IntakeEvent{ConversationID: "c1", Role: "user", Important: true}
	if err := r.TriggerIntake(context.Background(), event); err != nil {
		t.Errorf("TriggerIntake returned error: %v", err)
	}
	if got != event {
		t.Error("hook did not receive the event")
	}
}

func TestConsolidationHooksOrder(t *testing.T) {
	r := NewRegistry()
	var calls []string

	r.OnBeforeConsolidation(func(ctx context.Context, conversationID string) error {
		calls = append(calls, "before:"+conversationID)
		return nil
	})
	r.OnAfterConsolidation(func(ctx context.Context, event *ConsolidationEvent) error {
		calls = append(calls, fmt.Sprintf("after:%s:%d", event.ConversationID, event.EntriesAfter))
		return nil
	})

	ctx := context.Background()
	if err := r.TriggerBeforeConsolidation(ctx, "c1"); err != nil {
		t.Fatalf("TriggerBeforeConsolidation returned error: %v", err)
	}
	if err := r.TriggerAfterConsolidation(ctx, &ConsolidationEvent{ConversationID: "c1", EntriesAfter: 3}); err != nil {
		t.Fatalf("TriggerAfterConsolidation returned error: %v", err)
	}

	want := []string{"before:c1", "after:c1:3"}
	if fmt.Sprint(calls) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, calls)
	}
}

func TestHookErrorStopsChain(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	secondCalled := false

	r.OnRetrieval(func(ctx context.Context, event *RetrievalEvent) error {
		return boom
	})
	r.OnRetrieval(func(ctx context.Context, event *RetrievalEvent) error {
		secondCalled = true
		return nil
	})

	err := r.TriggerRetrieval(context.Background(), &RetrievalEvent{})
	if !errors.Is(err, boom) {
		t.Errorf("expected boom, got %v", err)
	}
	if secondCalled {
		t.Error("second hook should not run after an error")
	}
}

func TestConcurrentRegistration(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	var mu sync.Mutex
	count := 0

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.OnIntake(func(ctx context.Context, event *IntakeEvent) error {
				mu.Lock()
				count++
				mu.Unlock()
				return nil
			})
		}()
	}
	wg.Wait()

	if err := r.TriggerIntake(context.Background(), &IntakeEvent{}); err != nil {
		t.Fatalf("TriggerIntake returned error: %v", err)
	}
	if count != 10 {
		t.Errorf("expected 10 hook calls, got %d", count)
	}
}

type recordingLogger struct {
	msgs []string
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.msgs = append(l.msgs, msg) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.msgs = append(l.msgs, msg) }

func TestLoggingHooks(t *testing.T) {
	logger := &recordingLogger{}
	r := NewRegistry()
	NewLoggingHooks(logger).Register(r)

	ctx := context.Background()
	_ = r.TriggerBeforeConsolidation(ctx, "c1")
	_ = r.TriggerAfterConsolidation(ctx, &ConsolidationEvent{ConversationID: "c1", TokensBefore: 100, TokensAfter: 20})
	_ = r.TriggerRetrieval(ctx, &RetrievalEvent{ConversationID: "c1"})

	want := []string{"memory keep starting", "memory keep complete", "experience search skipped"}
	if fmt.Sprint(logger.msgs) != fmt.Sprint(want) {
		t.Errorf("expected %v, got %v", want, logger.msgs)
	}
}
