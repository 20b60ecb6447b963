package memorykeep

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/youssefsiam38/memorykeep/hooks"
	"github.com/youssefsiam38/memorykeep/storage"
	"github.com/youssefsiam38/memorykeep/storage/memstore"
)

func seedStream(t *testing.T, store storage.Store, conversationID string, turns ...string) {
	t.Helper()
	for i, c := range turns {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		_, err := store.AppendEntry(context.Background(), &storage.AppendEntryParams{
			ConversationID: conversationID,
			Role:           role,
			Content:        c,
		})
		if err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
	}
}

func TestRenderTranscript(t *testing.T) {
	entries := []*storage.StreamEntry{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello there"},
		{Role: "system", Content: "[MEMORY_KEEP: x]"},
	}
	want := "user: hi\nassistant: hello there\nsystem: [MEMORY_KEEP: x]"
	if got := RenderTranscript(entries); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got := RenderTranscript(nil); got != "" {
		t.Errorf("expected empty transcript, got %q", got)
	}
}

func TestConsolidateStreamShape(t *testing.T) {
	tests := []struct {
		name    string
		turns   int
		overlap int
		want    []string
	}{
		{
			name:    "longer than overlap",
			turns:   5,
			overlap: 2,
			want:    []string{"system: [MEMORY_KEEP: digest]", "assistant: t3", "user: t4"},
		},
		{
			name:    "shorter than overlap",
			turns:   1,
			overlap: 2,
			want:    []string{"system: [MEMORY_KEEP: digest]", "user: t0"},
		},
		{
			name:    "equal to overlap",
			turns:   3,
			overlap: 3,
			want:    []string{"system: [MEMORY_KEEP: digest]", "user: t0", "assistant: t1", "user: t2"},
		},
		{
			name:    "empty stream",
			turns:   0,
			overlap: 2,
			want:    []string{"system: [MEMORY_KEEP: Conversation consolidated.]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memstore.New()
			var turns []string
			for i := 0; i < tt.turns; i++ {
				turns = append(turns, fmt.Sprintf("t%d", i))
			}
			seedStream(t, store, "c1", turns...)

			sidecar := &fakeSidecar{summarize: func(string) (*Summary, error) {
				return &Summary{Summary: "digest"}, nil
			}}
			e := newTestEngine(t, store, nil, sidecar, WithConfig(Config{OverlapCount: tt.overlap}))

			res, err := e.Consolidate(context.Background(), "c1")
			if err != nil {
				t.Fatalf("Consolidate failed: %v", err)
			}

			got := streamContents(t, store, "c1")
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("stream mismatch (-want +got):\n%s", diff)
			}
			if res.EntriesBefore != tt.turns || res.EntriesAfter != len(tt.want) {
				t.Errorf("unexpected counts: before=%d after=%d", res.EntriesBefore, res.EntriesAfter)
			}
			if res.TokensAfter != StreamTokens(mustEntries(t, store, "c1")) {
				t.Errorf("TokensAfter %d does not match the stream", res.TokensAfter)
			}
		})
	}
}

func mustEntries(t *testing.T, store storage.Store, conversationID string) []*storage.StreamEntry {
	t.Helper()
	entries, err := store.GetEntries(context.Background(), conversationID)
	if err != nil {
		t.Fatalf("GetEntries failed: %v", err)
	}
	return entries
}

func TestConsolidateSendsTranscript(t *testing.T) {
	store := memstore.New()
	seedStream(t, store, "c1", "how do I bake bread", "use flour and water")
	sidecar := &fakeSidecar{}
	e := newTestEngine(t, store, nil, sidecar)

	if _, err := e.Consolidate(context.Background(), "c1"); err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	want := "user: how do I bake bread\nassistant: use flour and water"
	if len(sidecar.texts) != 1 || sidecar.texts[0] != want {
		t.Errorf("expected transcript %q, got %q", want, sidecar.texts)
	}
}

func TestConsolidatePatternsBecomeExperiences(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	seedStream(t, store, "c1", "a", "b", "c")
	sidecar := &fakeSidecar{summarize: func(string) (*Summary, error) {
		return &Summary{Summary: "s", Patterns: []string{"asks about bread", "", "prefers metric units"}, TokenCost: 9}, nil
	}}
	e := newTestEngine(t, store, nil, sidecar)

	res, err := e.Consolidate(ctx, "c1")
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if res.SidecarTokens != 9 {
		t.Errorf("expected 9 sidecar tokens, got %d", res.SidecarTokens)
	}

	exps, err := store.GetExperiences(ctx, "c1")
	if err != nil {
		t.Fatalf("GetExperiences failed: %v", err)
	}
	var got []string
	for _, e := range exps {
		if e.Category != string(CategoryPattern) {
			t.Errorf("expected pattern category, got %q", e.Category)
		}
		got = append(got, e.Content)
	}
	if diff := cmp.Diff([]string{"asks about bread", "prefers metric units"}, got); diff != "" {
		t.Errorf("patterns mismatch (-want +got):\n%s", diff)
	}
}

func TestConsolidateSidecarFailure(t *testing.T) {
	ctx := context.Background()

	sidecars := map[string]*fakeSidecar{
		"error": {summarize: func(string) (*Summary, error) { return nil, errModelDown }},
		"malformed": {summarize: func(string) (*Summary, error) {
			return nil, fmt.Errorf("%w: unexpected end of JSON input", ErrMalformedOutput)
		}},
		"empty summary": {summarize: func(string) (*Summary, error) { return &Summary{}, nil }},
	}

	for name, sidecar := range sidecars {
		t.Run(name, func(t *testing.T) {
			store := memstore.New()
			seedStream(t, store, "c1", "one", "two", "three")
			e := newTestEngine(t, store, nil, sidecar)

			res, err := e.Consolidate(ctx, "c1")
			if err != nil {
				t.Fatalf("Consolidate must not fail on sidecar outage: %v", err)
			}
			if res.Summary != DefaultSummary {
				t.Errorf("expected default summary, got %q", res.Summary)
			}
			if len(res.Patterns) != 0 || res.SidecarTokens != 0 {
				t.Errorf("expected no patterns and no cost, got %+v", res)
			}

			want := []string{"system: [MEMORY_KEEP: Conversation consolidated.]", "assistant: two", "user: three"}
			if diff := cmp.Diff(want, streamContents(t, store, "c1")); diff != "" {
				t.Errorf("stream mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestConsolidateIsAtomic(t *testing.T) {
	ctx := context.Background()
	store := &faultyStore{Store: memstore.New()}
	seedStream(t, store.Store, "c1", "one", "two", "three", "four")

	sidecar := &fakeSidecar{summarize: func(string) (*Summary, error) {
		return &Summary{Summary: "s", Patterns: []string{"a pattern"}}, nil
	}}
	e := newTestEngine(t, store, nil, sidecar)

	// The summary entry succeeds, the first overlap entry fails.
	store.failAppendAt = 2

	_, err := e.Consolidate(ctx, "c1")
	if !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}

	want := []string{"user: one", "assistant: two", "user: three", "assistant: four"}
	if diff := cmp.Diff(want, streamContents(t, store, "c1")); diff != "" {
		t.Errorf("stream must be untouched after a failed memory keep (-want +got):\n%s", diff)
	}
	exps, _ := store.GetExperiences(ctx, "c1")
	if len(exps) != 0 {
		t.Errorf("patterns must roll back with the stream, got %d", len(exps))
	}
}

// Five memory keeps with a large sidecar cost never force another one.
func TestSidecarCostNeverTriggersConsolidation(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	sidecar := &fakeSidecar{summarize: func(string) (*Summary, error) {
		return &Summary{Summary: "short", TokenCost: 10000}, nil
	}}
	e := newTestEngine(t, store, &fakeAuthority{}, sidecar, WithConfig(Config{Capacity: 100}))

	var usage Usage
	seedStream(t, store, "c1", "hello", "hi")
	for i := 0; i < 5; i++ {
		res, err := e.Consolidate(ctx, "c1")
		if err != nil {
			t.Fatalf("Consolidate %d failed: %v", i, err)
		}
		usage.SifterTokens += res.SidecarTokens
	}
	if sidecar.callCount() != 5 {
		t.Fatalf("expected 5 summaries, got %d", sidecar.callCount())
	}

	res, err := e.Intake(ctx, "c1", usage, RoleUser, "a short follow up")
	if err != nil {
		t.Fatalf("Intake failed: %v", err)
	}
	if res.Consolidation != nil {
		t.Error("sidecar cost triggered a memory keep")
	}
	if sidecar.callCount() != 5 {
		t.Errorf("expected no sixth summary, got %d", sidecar.callCount())
	}
	if res.Usage.SifterTokens != 50000 {
		t.Errorf("expected sifter tokens carried through, got %d", res.Usage.SifterTokens)
	}
	if res.Usage.StreamTokens > e.Config().ThresholdTokens() {
		t.Errorf("stream tokens %d above threshold", res.Usage.StreamTokens)
	}
}

func TestConsolidateHooks(t *testing.T) {
	store := memstore.New()
	seedStream(t, store, "c1", "one", "two", "three")
	registry := hooks.NewRegistry()

	var order []string
	registry.OnBeforeConsolidation(func(ctx context.Context, conversationID string) error {
		order = append(order, "before")
		return nil
	})
	registry.OnAfterConsolidation(func(ctx context.Context, event *hooks.ConsolidationEvent) error {
		order = append(order, fmt.Sprintf("after:%d->%d", event.EntriesBefore, event.EntriesAfter))
		return nil
	})

	e := newTestEngine(t, store, nil, &fakeSidecar{}, WithHooks(registry))
	if _, err := e.Consolidate(context.Background(), "c1"); err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if diff := cmp.Diff([]string{"before", "after:3->3"}, order); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}
}

func TestConsolidateRejectsEmptyConversation(t *testing.T) {
	e := newTestEngine(t, nil, nil, nil)
	if _, err := e.Consolidate(context.Background(), ""); !errors.Is(err, ErrEmptyConversationID) {
		t.Errorf("expected ErrEmptyConversationID, got %v", err)
	}
}
