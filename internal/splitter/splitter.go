// Package splitter implements the deterministic overlapping-window text
// splitter that feeds the ingestion pipeline. Input text is normalized
// (whitespace collapsed) before windowing, so splitting is stable across
// repeated uploads of the same document.
package splitter

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Default window parameters, overridable via CHUNK_SIZE / CHUNK_OVERLAP.
const (
	// DefaultChunkSize is the maximum number of characters per chunk.
	DefaultChunkSize = 1000

	// DefaultChunkOverlap is the number of characters repeated between
	// consecutive chunks to preserve context across the boundary.
	DefaultChunkOverlap = 200
)

var (
	// spaceRuns matches runs of two or more spaces.
	spaceRuns = regexp.MustCompile(` +`)

	// newlineRuns matches runs of three or more newlines.
	newlineRuns = regexp.MustCompile(`\n{3,}`)
)

// Chunk is a bounded slice of a source document's text with positional
// metadata. Chunks are immutable once produced; Index is zero-based and
// contiguous within one source document.
type Chunk struct {
	// Text is the normalized, trimmed chunk content.
	Text string

	// Index is the zero-based position of this chunk within its document.
	Index int

	// SourceFile is the origin filename, propagated verbatim.
	SourceFile string

	// Size is len(Text), computed after trimming.
	Size int

	// CreatedAt is when the chunk was produced.
	CreatedAt time.Time
}

// Stats summarises a chunk sequence for diagnostics.
type Stats struct {
	// TotalChunks is the number of chunks.
	TotalChunks int
	// TotalChars is the sum of all chunk sizes.
	TotalChars int
	// AvgSize is the mean chunk size, zero when there are no chunks.
	AvgSize float64
	// MinSize is the smallest chunk size, zero when there are no chunks.
	MinSize int
	// MaxSize is the largest chunk size, zero when there are no chunks.
	MaxSize int
}

// Splitter splits normalized text into overlapping fixed-size windows.
// A Splitter is immutable and safe for concurrent use.
type Splitter struct {
	// chunkSize is the maximum characters per window.
	chunkSize int
	// chunkOverlap is the characters repeated between consecutive windows.
	chunkOverlap int
}

// New constructs a Splitter. chunkOverlap must be strictly less than
// chunkSize; violating this makes the window walk unable to advance, so it
// is rejected at construction time rather than surfacing per call.
func New(chunkSize, chunkOverlap int) (*Splitter, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("splitter: chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 {
		return nil, fmt.Errorf("splitter: chunk overlap must not be negative, got %d", chunkOverlap)
	}
	if chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("splitter: chunk overlap (%d) must be less than chunk size (%d)", chunkOverlap, chunkSize)
	}
	return &Splitter{chunkSize: chunkSize, chunkOverlap: chunkOverlap}, nil
}

// Split normalizes text and walks an overlapping window across it, returning
// the resulting chunks in order. Empty or all-whitespace input yields nil.
// Normalization collapses space runs to one space, collapses three or more
// consecutive newlines to exactly two, and trims surrounding whitespace;
// the exact original whitespace is not recoverable.
func (s *Splitter) Split(text, sourceFile string) []Chunk {
	text = normalize(text)
	if text == "" {
		return nil
	}

	now := time.Now()

	var chunks []Chunk
	emit := func(raw string) {
		trimmed := strings.TrimSpace(raw)
		if trimmed == "" {
			return
		}
		chunks = append(chunks, Chunk{
			Text:       trimmed,
			Index:      len(chunks),
			SourceFile: sourceFile,
			Size:       len(trimmed),
			CreatedAt:  now,
		})
	}

	if len(text) <= s.chunkSize {
		emit(text)
		return chunks
	}

	start := 0
	for start < len(text) {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}

		emit(text[start:end])

		if end >= len(text) {
			break
		}

		start = end - s.chunkOverlap
		// Guard against a non-advancing window so the walk always terminates.
		if start <= end-s.chunkSize {
			start = end
		}
	}

	return chunks
}

// ChunkSize returns the configured maximum characters per chunk.
func (s *Splitter) ChunkSize() int { return s.chunkSize }

// ChunkOverlap returns the configured overlap between consecutive chunks.
func (s *Splitter) ChunkOverlap() int { return s.chunkOverlap }

// ChunkStats computes size statistics over a chunk sequence.
func ChunkStats(chunks []Chunk) Stats {
	if len(chunks) == 0 {
		return Stats{}
	}

	st := Stats{TotalChunks: len(chunks), MinSize: chunks[0].Size, MaxSize: chunks[0].Size}
	for _, c := range chunks {
		st.TotalChars += c.Size
		if c.Size < st.MinSize {
			st.MinSize = c.Size
		}
		if c.Size > st.MaxSize {
			st.MaxSize = c.Size
		}
	}
	st.AvgSize = float64(st.TotalChars) / float64(st.TotalChunks)
	return st
}

// normalize collapses whitespace: space runs become one space, runs of three
// or more newlines become exactly two, and surrounding whitespace is trimmed.
func normalize(text string) string {
	text = spaceRuns.ReplaceAllString(text, " ")
	text = newlineRuns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}
