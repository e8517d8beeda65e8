// Package retriever orchestrates the query pipeline: embed the question,
// search the index, and generate a grounded answer with source attribution.
package retriever

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/generator"
	"github.com/ragstack/ragbot/internal/index"
)

// DefaultTopK is the number of passages retrieved when the caller does not
// override it.
const DefaultTopK = 5

// previewLimit caps the chunk text echoed back in source attributions.
const previewLimit = 100

// NoResultsAnswer is returned when the index has nothing relevant.
const NoResultsAnswer = "I don't have any information to answer that question. Please make sure you've uploaded relevant documents."

// Pipeline error strings surfaced to API clients.
const (
	ErrEmptyQuery     = "Empty query provided"
	ErrQueryEmbedding = "Failed to generate query embedding"
	ErrGeneration     = "Failed to generate response"
)

// SourceInfo attributes part of an answer to a stored chunk.
type SourceInfo struct {
	// ChunkText is a preview of the chunk, truncated to 100 characters.
	ChunkText string `json:"chunk_text"`

	// SourceFile is the document the chunk came from.
	SourceFile string `json:"source_file"`

	// ChunkIndex is the chunk's position within its document.
	ChunkIndex int `json:"chunk_index"`

	// SimilarityScore is 1 minus the index distance. It orders matches;
	// its absolute value is backend-dependent.
	SimilarityScore float32 `json:"similarity_score"`
}

// Result is the outcome of one query.
type Result struct {
	// Success reports whether the pipeline completed. A query with no
	// matching passages still succeeds with a canned answer.
	Success bool `json:"success"`

	// Answer is the generated text. Empty when Success is false.
	Answer string `json:"answer,omitempty"`

	// Sources attributes the answer to the retrieved chunks.
	Sources []SourceInfo `json:"sources"`

	// ChunksUsed is the number of passages given to the model.
	ChunksUsed int `json:"chunks_used"`

	// Err describes the failure when Success is false.
	Err string `json:"error,omitempty"`
}

// StreamSink receives the ordered events of a streamed answer: zero or more
// tokens, then the source attributions.
type StreamSink interface {
	// Token delivers one answer fragment. A non-nil error aborts the stream.
	Token(tok string) error

	// Sources delivers the attributions once all tokens are sent.
	Sources(sources []SourceInfo) error
}

// Retriever runs the retrieval pipeline against an embedder, an index, and
// a generator.
type Retriever struct {
	embedder  embedder.Embedder
	index     index.Index
	generator generator.Generator
	topK      int
	log       *slog.Logger
}

// New creates a Retriever. topK below 1 falls back to DefaultTopK.
func New(emb embedder.Embedder, idx index.Index, gen generator.Generator, topK int, log *slog.Logger) *Retriever {
	if topK < 1 {
		topK = DefaultTopK
	}
	if log == nil {
		log = slog.Default()
	}
	return &Retriever{
		embedder:  emb,
		index:     idx,
		generator: gen,
		topK:      topK,
		log:       log,
	}
}

// TopK returns the configured default passage count.
func (r *Retriever) TopK() int { return r.topK }

// Answer runs the full pipeline for query. topK overrides the default when
// positive. Failures are reported in the Result rather than as an error so
// the transport layer can serialize them directly.
func (r *Retriever) Answer(ctx context.Context, query string, topK int) Result {
	if strings.TrimSpace(query) == "" {
		return Result{Sources: []SourceInfo{}, Err: ErrEmptyQuery}
	}

	passages, sources, res, ok := r.retrieve(ctx, query, topK)
	if !ok {
		return res
	}

	if len(passages) == 0 {
		return Result{Success: true, Answer: NoResultsAnswer, Sources: []SourceInfo{}}
	}

	start := time.Now()
	answer, err := r.generator.GenerateGrounded(ctx, query, passages, generator.DefaultMaxTokens)
	if err != nil {
		r.log.Error("generation failed",
			slog.Int("chunks", len(passages)),
			slog.Any("error", err),
		)
		return Result{
			Sources:    sources,
			ChunksUsed: len(passages),
			Err:        ErrGeneration,
		}
	}

	r.log.Info("query answered",
		slog.Int("chunks_used", len(passages)),
		slog.Duration("generation_time", time.Since(start)),
	)

	return Result{
		Success:    true,
		Answer:     answer,
		Sources:    sources,
		ChunksUsed: len(passages),
	}
}

// AnswerStream runs the pipeline for query, delivering the answer token by
// token through sink, followed by the source attributions. Pre-stream
// failures (empty query, embedding failure) are reported in the Result with
// nothing written to sink. The returned answer in Result is the accumulated
// token text.
func (r *Retriever) AnswerStream(ctx context.Context, query string, topK int, sink StreamSink) Result {
	if strings.TrimSpace(query) == "" {
		return Result{Sources: []SourceInfo{}, Err: ErrEmptyQuery}
	}

	passages, sources, res, ok := r.retrieve(ctx, query, topK)
	if !ok {
		return res
	}

	if len(passages) == 0 {
		if err := sink.Token(NoResultsAnswer); err != nil {
			return Result{Sources: []SourceInfo{}, Err: err.Error()}
		}
		if err := sink.Sources([]SourceInfo{}); err != nil {
			return Result{Sources: []SourceInfo{}, Err: err.Error()}
		}
		return Result{Success: true, Answer: NoResultsAnswer, Sources: []SourceInfo{}}
	}

	stream, err := r.generator.StreamGrounded(ctx, query, passages)
	if err != nil {
		r.log.Error("stream generation failed", slog.Any("error", err))
		return Result{
			Sources:    sources,
			ChunksUsed: len(passages),
			Err:        ErrGeneration,
		}
	}
	defer stream.Close()

	var answer strings.Builder
	for {
		tok, more := stream.Next()
		if !more {
			break
		}
		answer.WriteString(tok)
		if err := sink.Token(tok); err != nil {
			return Result{
				Sources:    sources,
				ChunksUsed: len(passages),
				Err:        err.Error(),
			}
		}
	}
	if err := stream.Err(); err != nil {
		r.log.Error("stream generation failed",
			slog.Int("chunks", len(passages)),
			slog.Any("error", err),
		)
		return Result{
			Sources:    sources,
			ChunksUsed: len(passages),
			Err:        ErrGeneration,
		}
	}

	if err := sink.Sources(sources); err != nil {
		return Result{
			Sources:    sources,
			ChunksUsed: len(passages),
			Err:        err.Error(),
		}
	}

	return Result{
		Success:    true,
		Answer:     answer.String(),
		Sources:    sources,
		ChunksUsed: len(passages),
	}
}

// retrieve embeds the query and searches the index. A false return carries
// the terminal failure Result. Zero matches is not a failure: callers get
// ok=true with empty passages and decide how to deliver the canned answer.
func (r *Retriever) retrieve(ctx context.Context, query string, topK int) (passages []string, sources []SourceInfo, res Result, ok bool) {
	if topK < 1 {
		topK = r.topK
	}

	vector, err := r.embedder.Embed(ctx, query, embedder.ModeQuery)
	if err != nil {
		r.log.Error("query embedding failed", slog.Any("error", err))
		return nil, nil, Result{Sources: []SourceInfo{}, Err: ErrQueryEmbedding}, false
	}

	matches := r.index.Search(ctx, vector, topK)
	if len(matches) == 0 {
		return nil, nil, Result{}, true
	}

	passages = make([]string, len(matches))
	sources = make([]SourceInfo, len(matches))
	for i, m := range matches {
		passages[i] = m.Text
		sources[i] = SourceInfo{
			ChunkText:       preview(m.Text),
			SourceFile:      m.SourceFile,
			ChunkIndex:      m.ChunkIndex,
			SimilarityScore: 1 - m.Distance,
		}
	}

	return passages, sources, Result{}, true
}

// preview truncates text to previewLimit characters with an ellipsis.
func preview(text string) string {
	if len(text) > previewLimit {
		return text[:previewLimit] + "..."
	}
	return text
}
