package facestore

import (
	"context"
	"testing"
)

func TestMemStoreAddAndNearest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemStore()

	entries := []Entry{
		{Name: "alice", Encoding: []float32{1, 0, 0}},
		{Name: "bob", Encoding: []float32{0, 1, 0}},
		{Name: "carol", Encoding: []float32{0.9, 0.1, 0}},
	}
	for _, e := range entries {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add(%q): %v", e.Name, err)
		}
	}

	matches, err := s.Nearest(ctx, []float32{1, 0, 0}, 2)
	if err != nil {
		t.Fatalf("Nearest: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("want 2 matches, got %d", len(matches))
	}
	if matches[0].Name != "alice" {
		t.Errorf("closest match: want alice, got %s", matches[0].Name)
	}
	if matches[0].Distance > 1e-6 {
		t.Errorf("identical vector distance: want ~0, got %f", matches[0].Distance)
	}
	if matches[1].Name != "carol" {
		t.Errorf("second match: want carol, got %s", matches[1].Name)
	}
}

func TestMemStoreDimensionMismatch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemStore()

	if err := s.Add(ctx, Entry{Name: "alice", Encoding: []float32{1, 0, 0}}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := s.Add(ctx, Entry{Name: "bob", Encoding: []float32{1, 0}}); err == nil {
		t.Fatal("want dimension mismatch error, got nil")
	}
}

func TestMemStoreEmptyNearest(t *testing.T) {
	t.Parallel()

	s := NewMemStore()
	matches, err := s.Nearest(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("Nearest on empty store: %v", err)
	}
	if len(matches) != 0 {
		t.Fatalf("want no matches, got %d", len(matches))
	}
}

func TestMemStoreRemoveAndCount(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemStore()

	_ = s.Add(ctx, Entry{Name: "alice", Encoding: []float32{1, 0}})
	_ = s.Add(ctx, Entry{Name: "bob", Encoding: []float32{0, 1}})

	if err := s.Remove(ctx, "alice"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	// Removing a missing name is a no-op.
	if err := s.Remove(ctx, "nobody"); err != nil {
		t.Fatalf("Remove missing: %v", err)
	}

	n, err := s.Count(ctx)
	if err != nil {
		t.Fatalf("Count: %v", err)
	}
	if n != 1 {
		t.Fatalf("want 1 entry, got %d", n)
	}
}

func TestMemStoreList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemStore()

	for _, e := range []Entry{
		{Name: "bob", Encoding: []float32{0, 1}},
		{Name: "alice", Encoding: []float32{1, 0}},
	} {
		if err := s.Add(ctx, e); err != nil {
			t.Fatalf("Add(%q): %v", e.Name, err)
		}
	}

	entries, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("want 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "alice" || entries[1].Name != "bob" {
		t.Errorf("want name order [alice bob], got [%s %s]", entries[0].Name, entries[1].Name)
	}

	// The returned encodings are copies; mutating them must not corrupt
	// the store.
	entries[0].Encoding[0] = 42
	again, _ := s.List(ctx)
	if again[0].Encoding[0] != 1 {
		t.Error("List should return copies of stored encodings")
	}
}
