package generator

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// ResolveBackend picks the generation backend from the environment,
// defaulting to gemini.
func ResolveBackend() string {
	if v := os.Getenv("MODEL_PROVIDER"); v != "" {
		return v
	}
	return "gemini"
}

// NewFromEnv builds a Generator from environment configuration.
// MODEL_PROVIDER selects the backend and LLM_MODEL overrides the model name.
func NewFromEnv(ctx context.Context, log *slog.Logger) (Generator, error) {
	backend := ResolveBackend()
	model := os.Getenv("LLM_MODEL")

	switch backend {
	case "gemini":
		apiKey := os.Getenv("GOOGLE_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("generator: GOOGLE_API_KEY is required for the gemini backend")
		}
		return NewGeminiGenerator(ctx, apiKey, log, WithGeminiModel(model))

	case "openai":
		apiKey := os.Getenv("OPENAI_API_KEY")
		if apiKey == "" {
			return nil, fmt.Errorf("generator: OPENAI_API_KEY is required for the openai backend")
		}
		return NewOpenAIGenerator(apiKey, log, WithOpenAIModel(model))

	default:
		return nil, fmt.Errorf("generator: unknown backend %q", backend)
	}
}
