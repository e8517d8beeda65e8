// Package embedder wraps external embedding model APIs behind a single
// interface with retry/backoff and batch pacing. Two backends are provided:
// Google Gemini (the default) and OpenAI. Implementations are safe for
// concurrent use; a failed embed is reported to the caller, never escalated
// to a process failure.
package embedder

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/time/rate"
)

// Mode selects the embedding intent. Document and query embeddings may route
// to different task hints on backends that distinguish them, but always share
// one dimensionality contract.
type Mode string

const (
	// ModeDocument embeds text that will be stored in the index.
	ModeDocument Mode = "document"
	// ModeQuery embeds a search query.
	ModeQuery Mode = "query"
)

// ErrEmptyInput is returned for blank text before any external call is made.
var ErrEmptyInput = errors.New("embedder: empty input")

// Embedder converts text into a dense vector. Implementations must be safe
// to call from multiple goroutines.
type Embedder interface {
	// Embed returns the embedding vector for text. Blank text fails with
	// ErrEmptyInput without contacting the backend; other failures are
	// returned after the retry policy is exhausted.
	Embed(ctx context.Context, text string, mode Mode) ([]float32, error)

	// Dimensions returns the vector length this embedder produces.
	Dimensions() int
}

// EmbedBatch maps Embed over texts sequentially, pacing successive calls with
// limiter to respect external rate limits. The returned slice is parallel to
// texts; a failed item yields a nil slot rather than aborting the batch.
func EmbedBatch(ctx context.Context, e Embedder, texts []string, limiter *rate.Limiter, log *slog.Logger) [][]float32 {
	vectors := make([][]float32, len(texts))

	for i, text := range texts {
		if i > 0 && limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				// Context cancelled mid-batch; remaining slots stay nil.
				return vectors
			}
		}

		vec, err := e.Embed(ctx, text, ModeDocument)
		if err != nil {
			if log != nil {
				log.Warn("batch embed item failed",
					slog.Int("item", i),
					slog.Int("total", len(texts)),
					slog.Any("error", err),
				)
			}
			continue
		}
		vectors[i] = vec
	}

	return vectors
}
