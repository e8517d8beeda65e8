package index

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/ragstack/ragbot/internal/splitter"
)

// record is one stored chunk with its embedding.
type record struct {
	text       string
	sourceFile string
	chunkIndex int
	chunkSize  int
	createdAt  string
	vector     []float32
}

// MemoryIndex implements Index with an in-process slice and brute-force
// cosine search. It exists for tests and for running without a Qdrant
// instance; everything is kept until Reset or process exit.
type MemoryIndex struct {
	mu      sync.RWMutex
	records []record
}

// NewMemoryIndex returns an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{}
}

// Add stores chunks with their embeddings.
func (m *MemoryIndex) Add(_ context.Context, chunks []splitter.Chunk, vectors [][]float32) bool {
	if len(chunks) == 0 || len(chunks) != len(vectors) {
		return false
	}
	for _, v := range vectors {
		if v == nil {
			return false
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for i, chunk := range chunks {
		m.records = append(m.records, record{
			text:       chunk.Text,
			sourceFile: chunk.SourceFile,
			chunkIndex: chunk.Index,
			chunkSize:  chunk.Size,
			createdAt:  chunk.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			vector:     vectors[i],
		})
	}

	return true
}

// Search returns up to topK matches ordered by ascending cosine distance.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, topK int) []Match {
	if topK < 1 {
		topK = 1
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	matches := make([]Match, 0, len(m.records))
	for _, r := range m.records {
		matches = append(matches, Match{
			Text:       r.text,
			SourceFile: r.sourceFile,
			ChunkIndex: r.chunkIndex,
			ChunkSize:  r.chunkSize,
			CreatedAt:  r.createdAt,
			Distance:   1 - cosineSimilarity(vector, r.vector),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Distance < matches[j].Distance
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// DeleteBySource removes every record from the given source file. Returns
// false when nothing matched.
func (m *MemoryIndex) DeleteBySource(_ context.Context, sourceFile string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	removed := false
	for _, r := range m.records {
		if r.sourceFile == sourceFile {
			removed = true
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed
}

// ListSources returns the distinct source files, sorted.
func (m *MemoryIndex) ListSources(_ context.Context) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, r := range m.records {
		seen[r.sourceFile] = true
	}

	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Stats reports the record count and distinct sources.
func (m *MemoryIndex) Stats(ctx context.Context) Stats {
	sources := m.ListSources(ctx)

	m.mu.RLock()
	total := len(m.records)
	m.mu.RUnlock()

	return Stats{
		TotalChunks:  total,
		TotalSources: len(sources),
		Sources:      sources,
	}
}

// Reset drops every record.
func (m *MemoryIndex) Reset(_ context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = nil
	return true
}

// Ping always succeeds; the index lives in-process.
func (m *MemoryIndex) Ping(_ context.Context) error { return nil }

// Close is a no-op.
func (m *MemoryIndex) Close() error { return nil }

// cosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths and zero vectors yield 0.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
