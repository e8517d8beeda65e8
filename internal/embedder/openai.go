package embedder

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragstack/ragbot/internal/retry"
)

// Default OpenAI embedding settings.
const (
	// defaultOpenAIModel is the OpenAI embedding model name.
	defaultOpenAIModel = "text-embedding-3-large"

	// defaultOpenAILargeDims is the output dimension of text-embedding-3-large.
	defaultOpenAILargeDims = 3072

	// defaultOpenAISmallDims is the output dimension of text-embedding-3-small.
	defaultOpenAISmallDims = 1536
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
// OpenAI embedding models have no document/query task distinction, so the
// mode argument only documents intent and never changes the request.
type OpenAIEmbedder struct {
	// client is the shared OpenAI API client.
	client *openai.Client
	// model is the embedding model name.
	model string
	// dims is the requested output vector length.
	dims int
	// policy is the retry schedule applied to each embed call.
	policy retry.Policy
	// log receives retry warnings.
	log *slog.Logger
}

// OpenAIConfig holds the settings for constructing an OpenAIEmbedder.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the embedding model name (default: text-embedding-3-large).
	Model string
	// Dimensions is the requested vector length (default per model).
	Dimensions int
	// Logger receives structured warnings. If nil, slog.Default is used.
	Logger *slog.Logger
}

// NewOpenAIEmbedder constructs an OpenAIEmbedder from the given config.
func NewOpenAIEmbedder(cfg *OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedder: openai requires an API key")
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	dims := cfg.Dimensions
	if dims <= 0 {
		dims = defaultOpenAILargeDims
		if model == "text-embedding-3-small" {
			dims = defaultOpenAISmallDims
		}
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(cfg.APIKey),
		model:  model,
		dims:   dims,
		log:    log,
	}, nil
}

// Dimensions returns the requested embedding vector length.
func (e *OpenAIEmbedder) Dimensions() int { return e.dims }

// Embed converts text into an embedding vector, retrying transient failures
// with exponential backoff.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string, _ Mode) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}

	var vec []float32
	err := e.policy.Do(ctx, e.log, "openai embed", func() error {
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
			Input:      []string{text},
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dims,
		})
		if err != nil {
			return fmt.Errorf("create embeddings: %w", err)
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return fmt.Errorf("empty embedding in response")
		}
		vec = resp.Data[0].Embedding
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("embedder: openai: %w", err)
	}

	return vec, nil
}
