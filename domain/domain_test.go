package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/youssefsiam38/memorykeep/storage/memstore"
)

func TestProfileTextEmpty(t *testing.T) {
	svc := New(memstore.New())

	got, err := svc.ProfileText(context.Background(), "c1")
	if err != nil {
		t.Fatalf("ProfileText failed: %v", err)
	}
	if got != "" {
		t.Errorf("expected empty profile, got %q", got)
	}
}

func TestProfileText(t *testing.T) {
	ctx := context.Background()
	svc := New(memstore.New())

	err := svc.Seed(ctx, "c1", []Fact{
		{Key: "username", Value: "ada"},
		{Key: "email", Value: "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	got, err := svc.ProfileText(ctx, "c1")
	if err != nil {
		t.Fatalf("ProfileText failed: %v", err)
	}
	want := "\n[USER DOMAIN DATA]:\n- username: ada\n- email: ada@example.com\n"
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("profile mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateFact(t *testing.T) {
	ctx := context.Background()
	svc := New(memstore.New())

	if err := svc.UpdateFact(ctx, "c1", "city", "Lisbon"); err != nil {
		t.Fatalf("UpdateFact failed: %v", err)
	}
	if err := svc.UpdateFact(ctx, "c1", "city", "Porto"); err != nil {
		t.Fatalf("UpdateFact failed: %v", err)
	}

	facts, err := svc.Facts(ctx, "c1")
	if err != nil {
		t.Fatalf("Facts failed: %v", err)
	}
	if diff := cmp.Diff(map[string]string{"city": "Porto"}, facts); diff != "" {
		t.Errorf("facts mismatch (-want +got):\n%s", diff)
	}
}

func TestUpdateFactEmptyKey(t *testing.T) {
	svc := New(memstore.New())
	err := svc.UpdateFact(context.Background(), "c1", "  ", "x")
	if !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
}

func TestSeedIsAtomic(t *testing.T) {
	ctx := context.Background()
	svc := New(memstore.New())

	err := svc.Seed(ctx, "c1", []Fact{
		{Key: "username", Value: "ada"},
		{Key: "", Value: "broken"},
	})
	if !errors.Is(err, ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %v", err)
	}

	facts, err := svc.Facts(ctx, "c1")
	if err != nil {
		t.Fatalf("Facts failed: %v", err)
	}
	if len(facts) != 0 {
		t.Errorf("expected no facts after failed seed, got %v", facts)
	}
}
