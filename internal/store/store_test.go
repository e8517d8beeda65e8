package store

import (
	"context"
	"testing"
	"time"
)

// openTestStore opens an in-memory SQLiteStore for use in tests.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func Test_Store_AppendAndRecent(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Append(ctx, Entry{
		Query:      "What are your hobbies?",
		Answer:     "I love playing guitar!",
		Success:    true,
		ChunksUsed: 3,
		Duration:   1200 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Query != "What are your hobbies?" || e.Answer != "I love playing guitar!" {
		t.Errorf("round-trip mismatch: %+v", e)
	}
	if !e.Success || e.ChunksUsed != 3 {
		t.Errorf("metadata mismatch: %+v", e)
	}
	if e.Duration != 1200*time.Millisecond {
		t.Errorf("want 1.2s duration, got %v", e.Duration)
	}
	if e.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func Test_Store_FailedQueryRecorded(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	err := s.Append(ctx, Entry{Query: "hobbies?", Success: false})
	if err != nil {
		t.Fatalf("append: %v", err)
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("want 1 entry, got %d", len(entries))
	}
	if entries[0].Success {
		t.Error("expected failed query to stay failed")
	}
	if entries[0].Answer != "" {
		t.Errorf("want empty answer, got %q", entries[0].Answer)
	}
}

func Test_Store_RecentLimitRespected(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	for range 6 {
		if err := s.Append(ctx, Entry{Query: "q", Answer: "a", Success: true}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 4)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 4 {
		t.Errorf("want 4 entries, got %d", len(entries))
	}
}

func Test_Store_NewestFirstOrdering(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	queries := []string{"first", "second", "third"}
	for i, q := range queries {
		err := s.Append(ctx, Entry{
			Query:     q,
			Answer:    "a",
			Success:   true,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	entries, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	want := []string{"third", "second", "first"}
	for i, q := range want {
		if entries[i].Query != q {
			t.Errorf("entry[%d]: want %q, got %q", i, q, entries[i].Query)
		}
	}
}

func Test_Store_EmptyReturnsNil(t *testing.T) {
	t.Parallel()
	s := openTestStore(t)

	entries, err := s.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent empty: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("want 0 entries, got %d", len(entries))
	}
}
