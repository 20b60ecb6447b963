// Package storetest holds a behaviour suite every storage.Store must pass.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/youssefsiam38/memorykeep/storage"
)

// Run exercises store. newConversation must return an id that no other
// subtest has used, so suites can share one database.
func Run(t *testing.T, store storage.Store, newConversation func() string) {
	t.Helper()

	t.Run("AppendPreservesArrivalOrder", func(t *testing.T) {
		ctx := context.Background()
		conv := newConversation()

		for i := 0; i < 5; i++ {
			_, err := store.AppendEntry(ctx, &storage.AppendEntryParams{
				ConversationID: conv,
				Role:           "user",
				Content:        fmt.Sprintf("turn %d", i),
			})
			if err != nil {
				t.Fatalf("AppendEntry failed: %v", err)
			}
		}

		entries, err := store.GetEntries(ctx, conv)
		if err != nil {
			t.Fatalf("GetEntries failed: %v", err)
		}
		if len(entries) != 5 {
			t.Fatalf("Expected 5 entries, got %d", len(entries))
		}
		for i, e := range entries {
			if want := fmt.Sprintf("turn %d", i); e.Content != want {
				t.Errorf("entry %d: expected %q, got %q", i, want, e.Content)
			}
			if i > 0 && e.Seq <= entries[i-1].Seq {
				t.Errorf("entry %d: seq %d not after %d", i, e.Seq, entries[i-1].Seq)
			}
			if e.ID == "" {
				t.Errorf("entry %d: empty id", i)
			}
		}
	})

	t.Run("ConversationsAreIsolated", func(t *testing.T) {
		ctx := context.Background()
		a, b := newConversation(), newConversation()

		if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{ConversationID: a, Role: "user", Content: "from a"}); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
		if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{ConversationID: b, Role: "user", Content: "from b"}); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}

		n, err := store.DeleteEntries(ctx, a)
		if err != nil {
			t.Fatalf("DeleteEntries failed: %v", err)
		}
		if n != 1 {
			t.Errorf("Expected 1 deleted entry, got %d", n)
		}

		left, err := store.GetEntries(ctx, b)
		if err != nil {
			t.Fatalf("GetEntries failed: %v", err)
		}
		if len(left) != 1 || left[0].Content != "from b" {
			t.Errorf("Conversation b was modified: %+v", left)
		}
	})

	t.Run("ReinsertAfterDeleteKeepsOrder", func(t *testing.T) {
		ctx := context.Background()
		conv := newConversation()

		for _, c := range []string{"one", "two", "three"} {
			if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{ConversationID: conv, Role: "user", Content: c}); err != nil {
				t.Fatalf("AppendEntry failed: %v", err)
			}
		}

		err := store.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := store.DeleteEntries(ctx, conv); err != nil {
				return err
			}
			for _, c := range []string{"summary", "two", "three"} {
				if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{ConversationID: conv, Role: "system", Content: c}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatalf("RunInTx failed: %v", err)
		}

		entries, err := store.GetEntries(ctx, conv)
		if err != nil {
			t.Fatalf("GetEntries failed: %v", err)
		}
		got := contents(entries)
		want := []string{"summary", "two", "three"}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			t.Errorf("Expected %v, got %v", want, got)
		}
	})

	t.Run("RollbackDiscardsChanges", func(t *testing.T) {
		ctx := context.Background()
		conv := newConversation()

		if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{ConversationID: conv, Role: "user", Content: "keep me"}); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}

		boom := errors.New("boom")
		err := store.RunInTx(ctx, func(ctx context.Context) error {
			if _, err := store.DeleteEntries(ctx, conv); err != nil {
				return err
			}
			if _, err := store.CreateExperience(ctx, &storage.CreateExperienceParams{ConversationID: conv, Content: "lost", Category: "pattern"}); err != nil {
				return err
			}
			return boom
		})
		if !errors.Is(err, boom) {
			t.Fatalf("Expected boom, got %v", err)
		}

		entries, err := store.GetEntries(ctx, conv)
		if err != nil {
			t.Fatalf("GetEntries failed: %v", err)
		}
		if len(entries) != 1 || entries[0].Content != "keep me" {
			t.Errorf("Rollback did not restore stream: %v", contents(entries))
		}

		exps, err := store.GetExperiences(ctx, conv)
		if err != nil {
			t.Fatalf("GetExperiences failed: %v", err)
		}
		if len(exps) != 0 {
			t.Errorf("Expected no experiences after rollback, got %d", len(exps))
		}
	})

	t.Run("ExperiencesInCreationOrder", func(t *testing.T) {
		ctx := context.Background()
		conv := newConversation()

		want := []string{"likes tea", "lives in Lisbon", "asks short questions"}
		cats := []string{"preference", "fact", "pattern"}
		for i, c := range want {
			exp, err := store.CreateExperience(ctx, &storage.CreateExperienceParams{ConversationID: conv, Content: c, Category: cats[i]})
			if err != nil {
				t.Fatalf("CreateExperience failed: %v", err)
			}
			if exp.ID == "" {
				t.Error("Expected experience id")
			}
		}

		exps, err := store.GetExperiences(ctx, conv)
		if err != nil {
			t.Fatalf("GetExperiences failed: %v", err)
		}
		if len(exps) != len(want) {
			t.Fatalf("Expected %d experiences, got %d", len(want), len(exps))
		}
		for i, e := range exps {
			if e.Content != want[i] || e.Category != cats[i] {
				t.Errorf("experience %d: got (%q, %q)", i, e.Content, e.Category)
			}
		}
	})

	t.Run("DomainFactUpsert", func(t *testing.T) {
		ctx := context.Background()
		conv := newConversation()

		if err := store.UpsertDomainFact(ctx, conv, "username", "ada"); err != nil {
			t.Fatalf("UpsertDomainFact failed: %v", err)
		}
		if err := store.UpsertDomainFact(ctx, conv, "email", "ada@example.com"); err != nil {
			t.Fatalf("UpsertDomainFact failed: %v", err)
		}
		if err := store.UpsertDomainFact(ctx, conv, "username", "lovelace"); err != nil {
			t.Fatalf("UpsertDomainFact failed: %v", err)
		}

		facts, err := store.GetDomainFacts(ctx, conv)
		if err != nil {
			t.Fatalf("GetDomainFacts failed: %v", err)
		}
		if len(facts) != 2 {
			t.Fatalf("Expected 2 facts, got %d", len(facts))
		}
		values := map[string]string{}
		for _, f := range facts {
			values[f.Key] = f.Value
		}
		if values["username"] != "lovelace" {
			t.Errorf("Expected username 'lovelace', got %q", values["username"])
		}
		if values["email"] != "ada@example.com" {
			t.Errorf("Expected email 'ada@example.com', got %q", values["email"])
		}
	})

	t.Run("EmptyConversationIDRejected", func(t *testing.T) {
		ctx := context.Background()
		if _, err := store.AppendEntry(ctx, &storage.AppendEntryParams{Role: "user", Content: "x"}); err == nil {
			t.Error("Expected error for empty conversation id")
		}
		if _, err := store.CreateExperience(ctx, &storage.CreateExperienceParams{Content: "x"}); err == nil {
			t.Error("Expected error for empty conversation id")
		}
	})
}

func contents(entries []*storage.StreamEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Content)
	}
	return out
}
