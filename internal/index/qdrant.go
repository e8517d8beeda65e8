package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/ragstack/ragbot/internal/splitter"
)

// Payload field names used for every stored record.
const (
	fieldText       = "text"
	fieldSourceFile = "source_file"
	fieldChunkIndex = "chunk_index"
	fieldChunkSize  = "chunk_size"
	fieldCreatedAt  = "created_at"
)

// listScrollLimit bounds a single source-listing scroll. Collections here are
// personal knowledge bases, well under this size.
const listScrollLimit = 10000

// QdrantConfig holds connection parameters for a Qdrant-backed index.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// Logger receives degradation warnings. If nil, slog.Default is used.
	Logger *slog.Logger
}

// QdrantIndex implements Index backed by a Qdrant collection with cosine
// distance. Scores reported by Qdrant are cosine similarities; the facade
// exposes distance = 1 − similarity so lower always means closer.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration for this index.
	cfg *QdrantConfig

	// log receives structured degradation warnings.
	log *slog.Logger
}

// NewQdrantIndex creates a QdrantIndex, ensuring the target collection exists
// (creating it if necessary). Connection/bootstrap failures are returned —
// a service without its index is not startable.
func NewQdrantIndex(ctx context.Context, cfg *QdrantConfig) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("index: failed to create qdrant client: %w", err)
	}

	idx := &QdrantIndex{client: client, cfg: cfg, log: log}
	if err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}

	return idx, nil
}

// ensureCollection creates the Qdrant collection if it does not already exist.
func (q *QdrantIndex) ensureCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.cfg.Collection)
	if err != nil {
		return fmt.Errorf("index: failed to check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.cfg.Collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     q.cfg.VectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("index: failed to create collection %q: %w", q.cfg.Collection, err)
	}

	return nil
}

// Add stores chunks with their embeddings. Every record gets a fresh UUID;
// existing records are never overwritten.
func (q *QdrantIndex) Add(ctx context.Context, chunks []splitter.Chunk, vectors [][]float32) bool {
	if len(chunks) == 0 || len(chunks) != len(vectors) {
		q.log.Warn("add rejected: chunk/vector count mismatch",
			slog.Int("chunks", len(chunks)),
			slog.Int("vectors", len(vectors)),
		)
		return false
	}

	points := make([]*qdrant.PointStruct, 0, len(chunks))
	for i, chunk := range chunks {
		if vectors[i] == nil {
			q.log.Warn("add rejected: missing vector", slog.Int("item", i))
			return false
		}
		points = append(points, &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(uuid.NewString()),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				fieldText:       chunk.Text,
				fieldSourceFile: chunk.SourceFile,
				fieldChunkIndex: int64(chunk.Index),
				fieldChunkSize:  int64(chunk.Size),
				fieldCreatedAt:  chunk.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			}),
		})
	}

	if _, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Points:         points,
	}); err != nil {
		q.log.Error("upsert failed", slog.Any("error", err))
		return false
	}

	return true
}

// Search returns up to topK matches ordered by ascending distance. Backend
// failures and empty collections both yield an empty result.
func (q *QdrantIndex) Search(ctx context.Context, vector []float32, topK int) []Match {
	if topK < 1 {
		topK = 1
	}

	limit := uint64(topK)
	results, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		q.log.Error("search failed", slog.Any("error", err))
		return nil
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		m := Match{Distance: 1 - r.Score}
		if p := r.Payload; p != nil {
			if v, ok := p[fieldText]; ok {
				m.Text = v.GetStringValue()
			}
			if v, ok := p[fieldSourceFile]; ok {
				m.SourceFile = v.GetStringValue()
			}
			if v, ok := p[fieldChunkIndex]; ok {
				m.ChunkIndex = int(v.GetIntegerValue())
			}
			if v, ok := p[fieldChunkSize]; ok {
				m.ChunkSize = int(v.GetIntegerValue())
			}
			if v, ok := p[fieldCreatedAt]; ok {
				m.CreatedAt = v.GetStringValue()
			}
		}
		matches = append(matches, m)
	}

	return matches
}

// DeleteBySource removes every record whose source_file payload equals
// sourceFile. Returns false when nothing matched or the backend failed.
func (q *QdrantIndex) DeleteBySource(ctx context.Context, sourceFile string) bool {
	filter := &qdrant.Filter{
		Must: []*qdrant.Condition{qdrant.NewMatch(fieldSourceFile, sourceFile)},
	}

	matched, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Filter:         filter,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		q.log.Error("delete count failed", slog.Any("error", err))
		return false
	}
	if matched == 0 {
		return false
	}

	if _, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.cfg.Collection,
		Points:         qdrant.NewPointsSelectorFilter(filter),
	}); err != nil {
		q.log.Error("delete failed", slog.String("source", sourceFile), slog.Any("error", err))
		return false
	}

	return true
}

// ListSources returns the distinct source files in the collection, sorted.
func (q *QdrantIndex) ListSources(ctx context.Context) []string {
	points, err := q.client.Scroll(ctx, &qdrant.ScrollPoints{
		CollectionName: q.cfg.Collection,
		Limit:          qdrant.PtrOf(uint32(listScrollLimit)),
		WithPayload:    qdrant.NewWithPayloadInclude(fieldSourceFile),
	})
	if err != nil {
		q.log.Error("list sources failed", slog.Any("error", err))
		return nil
	}

	seen := make(map[string]bool)
	for _, p := range points {
		if v, ok := p.Payload[fieldSourceFile]; ok {
			if s := v.GetStringValue(); s != "" {
				seen[s] = true
			}
		}
	}

	sources := make([]string, 0, len(seen))
	for s := range seen {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	return sources
}

// Stats reports the total record count and the distinct sources.
func (q *QdrantIndex) Stats(ctx context.Context) Stats {
	total, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		q.log.Error("stats count failed", slog.Any("error", err))
		return Stats{Sources: []string{}}
	}

	sources := q.ListSources(ctx)
	if sources == nil {
		sources = []string{}
	}

	return Stats{
		TotalChunks:  int(total),
		TotalSources: len(sources),
		Sources:      sources,
	}
}

// Reset drops and recreates the collection. Safe to call on an empty or
// missing collection.
func (q *QdrantIndex) Reset(ctx context.Context) bool {
	if err := q.client.DeleteCollection(ctx, q.cfg.Collection); err != nil {
		q.log.Error("reset: delete collection failed", slog.Any("error", err))
		return false
	}
	if err := q.ensureCollection(ctx); err != nil {
		q.log.Error("reset: recreate collection failed", slog.Any("error", err))
		return false
	}
	return true
}

// Ping calls the Qdrant HealthCheck RPC.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("index: qdrant health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}
