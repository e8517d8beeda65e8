package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/ragstack/ragbot/internal/retry"
)

// Default Gemini embedding settings.
const (
	// defaultGeminiModel is the Gemini embedding model name.
	defaultGeminiModel = "gemini-embedding-001"

	// defaultGeminiDimensions is the output dimension of gemini-embedding-001.
	defaultGeminiDimensions = 3072
)

// Gemini task-type hints per embedding mode.
const (
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

// GeminiEmbedder implements Embedder using the Gemini embedContent API.
type GeminiEmbedder struct {
	// client is the shared Gemini API client.
	client *genai.Client
	// model is the embedding model name.
	model string
	// dims is the expected output vector length.
	dims int
	// policy is the retry schedule applied to each embed call.
	policy retry.Policy
	// log receives retry and dimension-mismatch warnings.
	log *slog.Logger
}

// GeminiConfig holds the settings for constructing a GeminiEmbedder.
type GeminiConfig struct {
	// APIKey is the Google AI Studio API key.
	APIKey string
	// Model is the embedding model name (default: gemini-embedding-001).
	Model string
	// Dimensions is the expected vector length (default: 3072).
	Dimensions int
	// Logger receives structured warnings. If nil, slog.Default is used.
	Logger *slog.Logger
}

// NewGeminiEmbedder constructs a GeminiEmbedder from the given config.
func NewGeminiEmbedder(ctx context.Context, cfg *GeminiConfig) (*GeminiEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: gemini requires an API key")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: failed to create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultGeminiDimensions
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &GeminiEmbedder{client: client, model: model, dims: dims, log: log}, nil
}

// Dimensions returns the expected embedding vector length.
func (e *GeminiEmbedder) Dimensions() int { return e.dims }

// Embed converts text into an embedding vector, retrying transient failures
// with exponential backoff. The mode selects the Gemini task-type hint.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string, mode Mode) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	taskType := taskRetrievalDocument
	if mode == ModeQuery {
		taskType = taskRetrievalQuery
	}

	var vec []float32
	err := e.policy.Do(ctx, e.log, "gemini embed", func() error {
		resp, err := e.client.Models.EmbedContent(ctx, e.model, genai.Text(text), &genai.EmbedContentConfig{
			TaskType: taskType,
		})
		if err != nil {
			return fmt.Errorf("embed content: %w", err)
		}
		if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
			return fmt.Errorf("empty embedding in response")
		}
		vec = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: gemini: %w", err)
	}

	if len(vec) != e.dims {
		e.log.Warn("unexpected embedding dimension",
			slog.String("model", e.model),
			slog.Int("want", e.dims),
			slog.Int("got", len(vec)),
		)
	}

	return vec, nil
}
