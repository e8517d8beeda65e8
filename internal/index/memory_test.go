package index

import (
	"context"
	"testing"
	"time"

	"github.com/ragstack/ragbot/internal/splitter"
)

func chunk(text, source string, idx int) splitter.Chunk {
	return splitter.Chunk{
		Text:       text,
		Index:      idx,
		SourceFile: source,
		Size:       len(text),
		CreatedAt:  time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemoryIndexAddValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chunks  []splitter.Chunk
		vectors [][]float32
	}{
		{name: "empty", chunks: nil, vectors: nil},
		{
			name:    "count mismatch",
			chunks:  []splitter.Chunk{chunk("a", "a.txt", 0)},
			vectors: [][]float32{{1, 0}, {0, 1}},
		},
		{
			name:    "nil vector",
			chunks:  []splitter.Chunk{chunk("a", "a.txt", 0), chunk("b", "a.txt", 1)},
			vectors: [][]float32{{1, 0}, nil},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx := NewMemoryIndex()
			if idx.Add(context.Background(), tt.chunks, tt.vectors) {
				t.Fatal("expected Add to reject input")
			}
			if got := idx.Stats(context.Background()).TotalChunks; got != 0 {
				t.Fatalf("expected empty index, got %d chunks", got)
			}
		})
	}
}

func TestMemoryIndexSearchOrdering(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	ctx := context.Background()

	chunks := []splitter.Chunk{
		chunk("exact match", "a.txt", 0),
		chunk("orthogonal", "a.txt", 1),
		chunk("close match", "b.txt", 0),
	}
	vectors := [][]float32{
		{1, 0},
		{0, 1},
		{0.9, 0.1},
	}
	if !idx.Add(ctx, chunks, vectors) {
		t.Fatal("Add failed")
	}

	matches := idx.Search(ctx, []float32{1, 0}, 3)
	if len(matches) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(matches))
	}
	if matches[0].Text != "exact match" {
		t.Errorf("expected exact match first, got %q", matches[0].Text)
	}
	if matches[1].Text != "close match" {
		t.Errorf("expected close match second, got %q", matches[1].Text)
	}
	if matches[2].Text != "orthogonal" {
		t.Errorf("expected orthogonal last, got %q", matches[2].Text)
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].Distance < matches[i-1].Distance {
			t.Errorf("matches not sorted by ascending distance at %d", i)
		}
	}
	if matches[0].Distance > 0.001 {
		t.Errorf("expected near-zero distance for exact match, got %f", matches[0].Distance)
	}
}

func TestMemoryIndexSearchTopK(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	ctx := context.Background()

	chunks := []splitter.Chunk{
		chunk("one", "a.txt", 0),
		chunk("two", "a.txt", 1),
		chunk("three", "a.txt", 2),
	}
	vectors := [][]float32{{1, 0}, {0.8, 0.2}, {0, 1}}
	idx.Add(ctx, chunks, vectors)

	if got := len(idx.Search(ctx, []float32{1, 0}, 2)); got != 2 {
		t.Errorf("expected topK to cap results at 2, got %d", got)
	}
	if got := len(idx.Search(ctx, []float32{1, 0}, 10)); got != 3 {
		t.Errorf("expected all 3 results for large topK, got %d", got)
	}
	if got := len(idx.Search(ctx, []float32{1, 0}, 0)); got != 1 {
		t.Errorf("expected topK<1 to behave as 1, got %d", got)
	}
}

func TestMemoryIndexSearchEmpty(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	matches := idx.Search(context.Background(), []float32{1, 0}, 5)
	if len(matches) != 0 {
		t.Fatalf("expected no matches from empty index, got %d", len(matches))
	}
}

func TestMemoryIndexDeleteBySource(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	ctx := context.Background()

	chunks := []splitter.Chunk{
		chunk("one", "a.txt", 0),
		chunk("two", "b.txt", 0),
		chunk("three", "a.txt", 1),
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	idx.Add(ctx, chunks, vectors)

	if !idx.DeleteBySource(ctx, "a.txt") {
		t.Fatal("expected delete to report matches")
	}
	stats := idx.Stats(ctx)
	if stats.TotalChunks != 1 {
		t.Errorf("expected 1 remaining chunk, got %d", stats.TotalChunks)
	}
	if len(stats.Sources) != 1 || stats.Sources[0] != "b.txt" {
		t.Errorf("expected only b.txt remaining, got %v", stats.Sources)
	}

	if idx.DeleteBySource(ctx, "a.txt") {
		t.Error("expected second delete of same source to report no matches")
	}
	if idx.DeleteBySource(ctx, "missing.txt") {
		t.Error("expected delete of unknown source to report no matches")
	}
}

func TestMemoryIndexStatsAndListSources(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	ctx := context.Background()

	stats := idx.Stats(ctx)
	if stats.TotalChunks != 0 || stats.TotalSources != 0 {
		t.Fatalf("expected zero stats for empty index, got %+v", stats)
	}
	if stats.Sources == nil {
		t.Fatal("expected empty slice, not nil, for sources")
	}

	chunks := []splitter.Chunk{
		chunk("one", "zeta.txt", 0),
		chunk("two", "alpha.txt", 0),
		chunk("three", "zeta.txt", 1),
	}
	vectors := [][]float32{{1, 0}, {0, 1}, {1, 1}}
	idx.Add(ctx, chunks, vectors)

	stats = idx.Stats(ctx)
	if stats.TotalChunks != 3 {
		t.Errorf("expected 3 chunks, got %d", stats.TotalChunks)
	}
	if stats.TotalSources != 2 {
		t.Errorf("expected 2 sources, got %d", stats.TotalSources)
	}
	if len(stats.Sources) != 2 || stats.Sources[0] != "alpha.txt" || stats.Sources[1] != "zeta.txt" {
		t.Errorf("expected sorted sources [alpha.txt zeta.txt], got %v", stats.Sources)
	}
}

func TestMemoryIndexReset(t *testing.T) {
	t.Parallel()

	idx := NewMemoryIndex()
	ctx := context.Background()

	idx.Add(ctx, []splitter.Chunk{chunk("one", "a.txt", 0)}, [][]float32{{1, 0}})
	if !idx.Reset(ctx) {
		t.Fatal("expected reset to succeed")
	}
	if got := idx.Stats(ctx).TotalChunks; got != 0 {
		t.Errorf("expected empty index after reset, got %d chunks", got)
	}

	// Resetting an already empty index succeeds too.
	if !idx.Reset(ctx) {
		t.Error("expected reset of empty index to succeed")
	}
}

func TestCosineSimilarity(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{name: "identical", a: []float32{1, 2, 3}, b: []float32{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 1}, want: 0},
		{name: "empty", a: nil, b: nil, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := cosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 0.0001 || diff < -0.0001 {
				t.Errorf("cosineSimilarity(%v, %v) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}
