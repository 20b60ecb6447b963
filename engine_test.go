package memorykeep

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/youssefsiam38/memorykeep/storage"
	"github.com/youssefsiam38/memorykeep/storage/memstore"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeAuthority is a scripted Authority.
type fakeAuthority struct {
	mu          sync.Mutex
	judge       func(role Role, content string) (*ImportanceJudgment, error)
	decide      func(msg string) (*SearchDecision, error)
	judgeCalls  int
	decideCalls int
}

func (a *fakeAuthority) JudgeImportance(ctx context.Context, role Role, content string) (*ImportanceJudgment, error) {
	a.mu.Lock()
	a.judgeCalls++
	a.mu.Unlock()
	if a.judge == nil {
		return &ImportanceJudgment{}, nil
	}
	return a.judge(role, content)
}

func (a *fakeAuthority) DecideSearch(ctx context.Context, msg string) (*SearchDecision, error) {
	a.mu.Lock()
	a.decideCalls++
	a.mu.Unlock()
	if a.decide == nil {
		return &SearchDecision{}, nil
	}
	return a.decide(msg)
}

// fakeSidecar is a scripted Sidecar.
type fakeSidecar struct {
	mu        sync.Mutex
	summarize func(text string) (*Summary, error)
	calls     int
	texts     []string
}

func (s *fakeSidecar) Summarize(ctx context.Context, text string) (*Summary, error) {
	s.mu.Lock()
	s.calls++
	s.texts = append(s.texts, text)
	s.mu.Unlock()
	if s.summarize == nil {
		return &Summary{Summary: "talked about things", Patterns: []string{}}, nil
	}
	return s.summarize(text)
}

func (s *fakeSidecar) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

var errModelDown = errors.New("model down")

// faultyStore injects failures into a memstore.
type faultyStore struct {
	*memstore.Store

	mu             sync.Mutex
	appends        int
	failAppendAt   int // 1-based index of the first failing append; 0 disables
	failGetEntries bool
}

func (s *faultyStore) AppendEntry(ctx context.Context, params *storage.AppendEntryParams) (*storage.StreamEntry, error) {
	s.mu.Lock()
	s.appends++
	fail := s.failAppendAt > 0 && s.appends >= s.failAppendAt
	s.mu.Unlock()
	if fail {
		return nil, errors.New("disk on fire")
	}
	return s.Store.AppendEntry(ctx, params)
}

func (s *faultyStore) GetEntries(ctx context.Context, conversationID string) ([]*storage.StreamEntry, error) {
	if s.failGetEntries {
		return nil, errors.New("connection refused")
	}
	return s.Store.GetEntries(ctx, conversationID)
}

func newTestEngine(t *testing.T, store storage.Store, authority Authority, sidecar Sidecar, opts ...Option) *Engine {
	t.Helper()
	if store == nil {
		store = memstore.New()
	}
	e, err := New(store, authority, sidecar, opts...)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

// turn returns an eight word user turn numbered n.
func turn(n int) string {
	return fmt.Sprintf("turn%d words to fill up the stream w%d", n, n)
}

func streamContents(t *testing.T, store storage.Store, conversationID string) []string {
	t.Helper()
	entries, err := store.GetEntries(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Role + ": " + e.Content
	}
	return out
}

func TestNewRequiresStore(t *testing.T) {
	_, err := New(nil, nil, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewInvalidConfig(t *testing.T) {
	_, err := New(memstore.New(), nil, nil, WithConfig(Config{FlushThreshold: 1.5}))
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig, got %v", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil, WithConfig(Config{Capacity: 100}))
	cfg := e.Config()
	if cfg.Capacity != 100 {
		t.Errorf("expected capacity 100, got %d", cfg.Capacity)
	}
	if cfg.FlushThreshold != DefaultFlushThreshold {
		t.Errorf("expected default threshold, got %f", cfg.FlushThreshold)
	}
	if cfg.OverlapCount != DefaultOverlapCount || cfg.RetrievalLimit != DefaultRetrievalLimit {
		t.Errorf("expected default overlap and limit, got %+v", cfg)
	}
}

// End to end: capacity 100, trigger at 85 tokens, overlap 2, ten turns.
func TestEndToEndMemoryKeep(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	authority := &fakeAuthority{}
	sidecar := &fakeSidecar{
		summarize: func(text string) (*Summary, error) {
			return &Summary{Summary: "ten turns of filler", Patterns: []string{"user sends filler"}, TokenCost: 40}, nil
		},
	}
	e := newTestEngine(t, store, authority, sidecar, WithConfig(Config{Capacity: 100, FlushThreshold: 0.85, OverlapCount: 2}))

	var usage Usage
	for i := 1; i <= 10; i++ {
		res, err := e.Intake(ctx, "c1", usage, RoleUser, turn(i))
		if err != nil {
			t.Fatalf("Intake %d failed: %v", i, err)
		}
		usage = res.Usage

		if i < 10 && res.Consolidation != nil {
			t.Fatalf("turn %d consolidated early at %d tokens", i, res.Usage.StreamTokens)
		}
		if i == 10 && res.Consolidation == nil {
			t.Fatalf("turn 10 did not consolidate")
		}
	}

	got := streamContents(t, store, "c1")
	want := []string{
		"system: [MEMORY_KEEP: ten turns of filler]",
		"user: " + turn(9),
		"user: " + turn(10),
	}
	if strings.Join(got, "\n") != strings.Join(want, "\n") {
		t.Errorf("stream after memory keep:\n got %q\nwant %q", got, want)
	}

	if usage.StreamTokens >= 40 {
		t.Errorf("expected a small stream after memory keep, got %d tokens", usage.StreamTokens)
	}
	if usage.SifterTokens != 40 {
		t.Errorf("expected 40 sifter tokens, got %d", usage.SifterTokens)
	}
	if authority.judgeCalls != 10 {
		t.Errorf("expected 10 judgments, got %d", authority.judgeCalls)
	}

	exps, err := store.GetExperiences(ctx, "c1")
	if err != nil {
		t.Fatalf("GetExperiences failed: %v", err)
	}
	if len(exps) != 1 || exps[0].Content != "user sends filler" || exps[0].Category != string(CategoryPattern) {
		t.Errorf("expected one pattern experience, got %+v", exps)
	}
}
