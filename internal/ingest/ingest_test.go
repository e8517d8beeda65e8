package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/extract"
	"github.com/ragstack/ragbot/internal/index"
	"github.com/ragstack/ragbot/internal/splitter"
)

type fakeEmbedder struct {
	failContaining string
	calls          int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string, _ embedder.Mode) ([]float32, error) {
	f.calls++
	if f.failContaining != "" && strings.Contains(text, f.failContaining) {
		return nil, errors.New("embedder: upstream unavailable")
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Dimensions() int { return 2 }

func newTestPipeline(t *testing.T, emb embedder.Embedder, idx index.Index) *Pipeline {
	t.Helper()

	sp, err := splitter.New(100, 20)
	if err != nil {
		t.Fatalf("splitter.New: %v", err)
	}
	p, err := New(t.TempDir(), sp, emb, idx, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func TestIngestTextDocument(t *testing.T) {
	t.Parallel()

	idx := index.NewMemoryIndex()
	p := newTestPipeline(t, &fakeEmbedder{}, idx)

	text := strings.Repeat("I am a software engineer who enjoys hiking. ", 10)
	res, err := p.Ingest(context.Background(), "about_me.txt", strings.NewReader(text), int64(len(text)))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Filename != "about_me.txt" {
		t.Errorf("unexpected filename %q", res.Filename)
	}
	if res.ChunksCreated < 2 {
		t.Errorf("expected multiple chunks, got %d", res.ChunksCreated)
	}
	if !strings.Contains(res.Message, "about_me.txt") {
		t.Errorf("expected filename in message, got %q", res.Message)
	}

	stats := idx.Stats(context.Background())
	if stats.TotalChunks != res.ChunksCreated {
		t.Errorf("index holds %d chunks, result reports %d", stats.TotalChunks, res.ChunksCreated)
	}
	if len(stats.Sources) != 1 || stats.Sources[0] != "about_me.txt" {
		t.Errorf("unexpected sources %v", stats.Sources)
	}
}

func TestIngestRejectsUnsupportedType(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, index.NewMemoryIndex())

	res, err := p.Ingest(context.Background(), "notes.docx", strings.NewReader("hello"), 5)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Message != "File type not allowed" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestIngestRejectsOversizedFile(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, index.NewMemoryIndex())

	res, err := p.Ingest(context.Background(), "big.txt", strings.NewReader("x"), extract.MaxFileSize+1)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Success {
		t.Fatal("expected rejection")
	}
	if res.Message != "File too large" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestIngestStripsDirectoryFromFilename(t *testing.T) {
	t.Parallel()

	idx := index.NewMemoryIndex()
	p := newTestPipeline(t, &fakeEmbedder{}, idx)

	text := "Short personal note about my work."
	res, err := p.Ingest(context.Background(), "../../etc/about.txt", strings.NewReader(text), int64(len(text)))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Filename != "about.txt" {
		t.Errorf("expected path components stripped, got %q", res.Filename)
	}
}

func TestIngestWhitespaceOnlyDocument(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, index.NewMemoryIndex())

	res, err := p.Ingest(context.Background(), "empty.txt", strings.NewReader("   \n\n   "), 8)
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for empty document")
	}
	if res.Message != "Failed to extract text from document" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestIngestDropsFailedEmbeddings(t *testing.T) {
	t.Parallel()

	idx := index.NewMemoryIndex()
	// The word "zebra" appears in exactly one chunk of the input.
	emb := &fakeEmbedder{failContaining: "zebra"}
	p := newTestPipeline(t, emb, idx)

	text := strings.Repeat("Plain filler text about nothing special at all. ", 4) +
		"zebra " +
		strings.Repeat("More filler text about something else entirely here. ", 4)
	res, err := p.Ingest(context.Background(), "animals.txt", strings.NewReader(text), int64(len(text)))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success with partial embeddings, got %+v", res)
	}

	stats := idx.Stats(context.Background())
	if stats.TotalChunks != res.ChunksCreated {
		t.Errorf("index holds %d chunks, result reports %d", stats.TotalChunks, res.ChunksCreated)
	}
	if res.ChunksCreated >= emb.calls {
		t.Errorf("expected fewer stored chunks (%d) than embed calls (%d)", res.ChunksCreated, emb.calls)
	}
}

func TestIngestAllEmbeddingsFail(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{failContaining: "a"}, index.NewMemoryIndex())

	text := "a a a a a a a a a a"
	res, err := p.Ingest(context.Background(), "fail.txt", strings.NewReader(text), int64(len(text)))
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure when no embeddings succeed")
	}
	if res.Message != "Failed to generate embeddings" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestIngestFile(t *testing.T) {
	t.Parallel()

	idx := index.NewMemoryIndex()
	p := newTestPipeline(t, &fakeEmbedder{}, idx)

	path := filepath.Join(t.TempDir(), "resume.txt")
	if err := os.WriteFile(path, []byte("I have five years of backend experience."), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	res, err := p.IngestFile(context.Background(), path)
	if err != nil {
		t.Fatalf("IngestFile: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got %+v", res)
	}
	if res.Filename != "resume.txt" {
		t.Errorf("unexpected filename %q", res.Filename)
	}
}

func TestIngestFileMissing(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeEmbedder{}, index.NewMemoryIndex())

	if _, err := p.IngestFile(context.Background(), "/nonexistent/file.txt"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
