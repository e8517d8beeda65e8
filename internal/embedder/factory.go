package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
)

// DefaultDimensions returns the default embedding vector size for the given
// backend name. Callers that need to pre-configure a vector index collection
// should use this rather than hardcoding a value. EMBEDDING_DIMENSIONS
// always takes precedence when set.
func DefaultDimensions(backend string) int {
	if v := getEnvInt("EMBEDDING_DIMENSIONS", 0); v > 0 {
		return v
	}
	switch backend {
	case "openai":
		return defaultOpenAILargeDims
	default:
		return defaultGeminiDimensions
	}
}

// ResolveBackend returns the effective embedding backend name:
// EMBEDDING_PROVIDER when set, falling back to MODEL_PROVIDER, then "gemini".
func ResolveBackend() string {
	if v := os.Getenv("EMBEDDING_PROVIDER"); v != "" {
		return v
	}
	return getEnvOrDefault("MODEL_PROVIDER", "gemini")
}

// NewFromEnv constructs an Embedder from environment variables. The embedding
// backend inherits the chat provider configuration unless embedding-specific
// overrides are set.
//
// Resolution order:
//
//  1. EMBEDDING_PROVIDER — if unset, inherits MODEL_PROVIDER (default: gemini)
//  2. Backend credentials: GOOGLE_API_KEY (gemini), OPENAI_API_KEY (openai);
//     EMBEDDING_API_KEY overrides either
//  3. EMBEDDING_MODEL — overrides the backend's default model
//  4. EMBEDDING_DIMENSIONS — overrides the default vector size
func NewFromEnv(ctx context.Context, log *slog.Logger) (Embedder, error) {
	backend := ResolveBackend()
	model := os.Getenv("EMBEDDING_MODEL")
	dims := getEnvInt("EMBEDDING_DIMENSIONS", 0)

	switch backend {
	case "gemini":
		apiKey := os.Getenv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("GOOGLE_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: gemini requires GOOGLE_API_KEY or EMBEDDING_API_KEY")
		}
		return NewGeminiEmbedder(ctx, &GeminiConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
			Logger:     log,
		})

	case "openai":
		apiKey := os.Getenv("EMBEDDING_API_KEY")
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}
		if apiKey == "" {
			return nil, fmt.Errorf("embedder: openai requires OPENAI_API_KEY or EMBEDDING_API_KEY")
		}
		return NewOpenAIEmbedder(&OpenAIConfig{
			APIKey:     apiKey,
			Model:      model,
			Dimensions: dims,
			Logger:     log,
		})

	default:
		return nil, fmt.Errorf("embedder: unknown backend %q — valid values: gemini, openai", backend)
	}
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
