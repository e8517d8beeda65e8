// Package index defines the vector index facade used by the upload and query
// pipelines, and its concrete backends (Qdrant for production, an in-memory
// brute-force index for tests and single-process setups).
//
// The facade's contract is shape-stable input/output with graceful
// degradation: backend failures are logged and converted into empty results
// or false returns, never propagated raw to callers.
package index

import (
	"context"

	"github.com/ragstack/ragbot/internal/splitter"
)

// Match is one similarity-search hit. Matches are ephemeral — produced per
// query, never persisted.
type Match struct {
	// Text is the stored chunk text.
	Text string

	// SourceFile is the origin filename of the chunk.
	SourceFile string

	// ChunkIndex is the chunk's zero-based position within its document.
	ChunkIndex int

	// ChunkSize is the stored chunk length in characters.
	ChunkSize int

	// CreatedAt is the chunk creation timestamp (RFC3339).
	CreatedAt string

	// Distance is the vector distance to the query; lower is closer.
	// The metric depends on the backend (1 − cosine similarity for both
	// built-in backends), so only relative ordering is meaningful.
	Distance float32
}

// Stats summarises the index contents.
type Stats struct {
	// TotalChunks is the number of stored records.
	TotalChunks int `json:"total_chunks"`

	// TotalSources is the number of distinct source files.
	TotalSources int `json:"total_sources"`

	// Sources lists the distinct source files in lexicographic order.
	Sources []string `json:"sources"`
}

// Index is the facade over the vector store. Implementations must be safe
// to call from multiple goroutines and must never panic or return a raw
// backend error from the data-path methods — they degrade to empty/false.
type Index interface {
	// Add stores chunks with their parallel embedding vectors, assigning a
	// fresh unique id to every record. Returns false when the counts
	// mismatch, any vector is missing, or the backend write fails.
	Add(ctx context.Context, chunks []splitter.Chunk, vectors [][]float32) bool

	// Search returns up to topK matches ordered by ascending distance.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, vector []float32, topK int) []Match

	// DeleteBySource removes every record whose source file equals
	// sourceFile exactly (case-sensitive). Returns false when none matched.
	DeleteBySource(ctx context.Context, sourceFile string) bool

	// ListSources returns the distinct source files, sorted.
	ListSources(ctx context.Context) []string

	// Stats reports the index contents.
	Stats(ctx context.Context) Stats

	// Reset irreversibly deletes every record. Idempotent: resetting an
	// empty index succeeds.
	Reset(ctx context.Context) bool

	// Ping reports backend reachability for readiness probes.
	Ping(ctx context.Context) error

	// Close releases any resources held by the index.
	Close() error
}
