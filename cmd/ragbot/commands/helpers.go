package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/index"
	"github.com/ragstack/ragbot/internal/splitter"
)

// buildIndex constructs the vector index selected by VECTOR_BACKEND.
// "qdrant" (the default) connects to the Qdrant server described by the
// QDRANT_* env vars; "memory" builds a process-local index useful for
// development and tests.
func buildIndex(ctx context.Context, log *slog.Logger) (index.Index, error) {
	backend := getEnvOrDefault("VECTOR_BACKEND", "qdrant")

	switch backend {
	case "memory":
		log.Info("index: using in-memory backend, data will not survive restarts")
		return index.NewMemoryIndex(), nil

	case "qdrant":
		host := getEnvOrDefault("QDRANT_HOST", "localhost")
		port := getEnvInt("QDRANT_PORT", 6334)
		collection := getEnvOrDefault("QDRANT_COLLECTION", "ragbot-docs")
		vectorSize := uint64(embedder.DefaultDimensions(embedder.ResolveBackend())) //nolint:gosec // dimensions are bounded

		idx, err := index.NewQdrantIndex(ctx, &index.QdrantConfig{
			Host:       host,
			Port:       port,
			Collection: collection,
			VectorSize: vectorSize,
			APIKey:     os.Getenv("QDRANT_API_KEY"),
			UseTLS:     os.Getenv("QDRANT_TLS") == "true",
			Logger:     log,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant at %s:%d: %w", host, port, err)
		}
		log.Info("index: qdrant ready",
			slog.String("host", host),
			slog.Int("port", port),
			slog.String("collection", collection),
		)
		return idx, nil

	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q — valid values: qdrant, memory", backend)
	}
}

// buildSplitter constructs the document splitter from CHUNK_SIZE and
// CHUNK_OVERLAP, falling back to the package defaults.
func buildSplitter() (*splitter.Splitter, error) {
	size := getEnvInt("CHUNK_SIZE", splitter.DefaultChunkSize)
	overlap := getEnvInt("CHUNK_OVERLAP", splitter.DefaultChunkOverlap)
	return splitter.New(size, overlap)
}

// getEnvOrDefault returns the value of the named environment variable, or
// fallback if the variable is unset or empty.
func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getEnvInt returns the integer value of the named environment variable, or
// fallback if the variable is unset, empty, or not parseable.
func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}
