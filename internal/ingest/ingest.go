// Package ingest runs the document pipeline: persist an upload, extract its
// text, split it into chunks, embed each chunk, and store the results in the
// vector index.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/extract"
	"github.com/ragstack/ragbot/internal/index"
	"github.com/ragstack/ragbot/internal/splitter"
)

// DefaultUploadDir is where uploaded documents are kept when no directory
// is configured.
const DefaultUploadDir = "./uploads"

// embedInterval paces embedding calls to stay under provider rate limits.
const embedInterval = 100 * time.Millisecond

// Result reports the outcome of ingesting one document.
type Result struct {
	// Success reports whether the document reached the index.
	Success bool `json:"success"`

	// Message is a human-readable summary of the outcome.
	Message string `json:"message"`

	// Filename is the base name of the ingested document.
	Filename string `json:"filename"`

	// ChunksCreated is the number of chunks stored.
	ChunksCreated int `json:"chunks_created,omitempty"`

	// Err describes the failure when Success is false.
	Err string `json:"error,omitempty"`
}

// Pipeline wires the ingestion stages together.
type Pipeline struct {
	uploadDir string
	splitter  *splitter.Splitter
	embedder  embedder.Embedder
	index     index.Index
	limiter   *rate.Limiter
	log       *slog.Logger
}

// New creates a Pipeline, creating uploadDir if it does not exist.
func New(uploadDir string, sp *splitter.Splitter, emb embedder.Embedder, idx index.Index, log *slog.Logger) (*Pipeline, error) {
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}
	if log == nil {
		log = slog.Default()
	}
	if err := os.MkdirAll(uploadDir, 0o750); err != nil {
		return nil, fmt.Errorf("ingest: failed to create upload directory: %w", err)
	}

	return &Pipeline{
		uploadDir: uploadDir,
		splitter:  sp,
		embedder:  emb,
		index:     idx,
		limiter:   rate.NewLimiter(rate.Every(embedInterval), 1),
		log:       log,
	}, nil
}

// UploadDir returns the directory uploads are persisted to.
func (p *Pipeline) UploadDir() string { return p.uploadDir }

// Ingest persists the document from r under filename and runs the pipeline
// on it. Validation and processing failures are reported in the Result; an
// error return means the upload could not even be saved.
func (p *Pipeline) Ingest(ctx context.Context, filename string, r io.Reader, size int64) (Result, error) {
	filename = filepath.Base(filename)

	if err := extract.ValidateName(filename); err != nil {
		return Result{
			Message:  "File type not allowed",
			Filename: filename,
			Err:      err.Error(),
		}, nil
	}
	if err := extract.ValidateSize(size); err != nil {
		return Result{
			Message:  "File too large",
			Filename: filename,
			Err:      err.Error(),
		}, nil
	}

	path := filepath.Join(p.uploadDir, filename)
	if err := p.save(path, r); err != nil {
		return Result{}, fmt.Errorf("ingest: failed to save %s: %w", filename, err)
	}
	p.log.Info("upload saved", slog.String("path", path), slog.Int64("bytes", size))

	return p.process(ctx, path, filename), nil
}

// IngestFile runs the pipeline on a file already on disk, copying it into
// the upload directory first. Used by the CLI.
func (p *Pipeline) IngestFile(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest: failed to open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, fmt.Errorf("ingest: failed to stat %s: %w", path, err)
	}

	return p.Ingest(ctx, filepath.Base(path), f, info.Size())
}

// process runs extraction through indexing for a saved document.
func (p *Pipeline) process(ctx context.Context, path, filename string) Result {
	text, err := extract.File(path)
	if err != nil {
		p.log.Error("text extraction failed", slog.String("file", filename), slog.Any("error", err))
		return Result{
			Message:  "Failed to extract text from document",
			Filename: filename,
			Err:      "Could not extract text",
		}
	}

	chunks := p.splitter.Split(text, filename)
	if len(chunks) == 0 {
		return Result{
			Message:  "Failed to create chunks",
			Filename: filename,
			Err:      "Could not split text into chunks",
		}
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := embedder.EmbedBatch(ctx, p.embedder, texts, p.limiter, p.log)

	// Drop chunks whose embedding failed; the rest are still usable.
	validChunks := make([]splitter.Chunk, 0, len(chunks))
	validVectors := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if v != nil {
			validChunks = append(validChunks, chunks[i])
			validVectors = append(validVectors, v)
		}
	}
	if len(validVectors) == 0 {
		return Result{
			Message:  "Failed to generate embeddings",
			Filename: filename,
			Err:      "Could not generate embeddings",
		}
	}
	if dropped := len(chunks) - len(validChunks); dropped > 0 {
		p.log.Warn("some chunks failed to embed",
			slog.String("file", filename),
			slog.Int("dropped", dropped),
		)
	}

	if !p.index.Add(ctx, validChunks, validVectors) {
		return Result{
			Message:  "Failed to store in database",
			Filename: filename,
			Err:      "Could not store embeddings",
		}
	}

	stats := splitter.ChunkStats(validChunks)
	p.log.Info("document ingested",
		slog.String("file", filename),
		slog.Int("chunks", stats.TotalChunks),
		slog.Int("total_chars", stats.TotalChars),
	)

	return Result{
		Success:       true,
		Message:       fmt.Sprintf("Successfully processed %s", filename),
		Filename:      filename,
		ChunksCreated: len(validChunks),
	}
}

func (p *Pipeline) save(path string, r io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return err
	}
	return f.Close()
}
