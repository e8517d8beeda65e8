package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/ragstack/ragbot/internal/retry"
)

// DefaultGeminiModel is the generation model used when none is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// defaultTemperature keeps answers conversational without drifting from the
// supplied passages.
const defaultTemperature float32 = 0.7

// GeminiGenerator produces answers with the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	policy retry.Policy
	log    *slog.Logger
}

// GeminiOption customizes a GeminiGenerator.
type GeminiOption func(*GeminiGenerator)

// WithGeminiModel overrides the generation model.
func WithGeminiModel(model string) GeminiOption {
	return func(g *GeminiGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithGeminiRetry overrides the retry policy for generation calls.
func WithGeminiRetry(p retry.Policy) GeminiOption {
	return func(g *GeminiGenerator) { g.policy = p }
}

// NewGeminiGenerator creates a Gemini-backed generator.
func NewGeminiGenerator(ctx context.Context, apiKey string, log *slog.Logger, opts ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator: gemini: api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("generator: gemini: failed to create client: %w", err)
	}

	g := &GeminiGenerator{
		client: client,
		model:  DefaultGeminiModel,
		policy: retry.Policy{},
		log:    log,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Generate produces a completion for prompt, retrying transient failures.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("generator: gemini: empty prompt")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var answer string
	err := g.policy.Do(ctx, g.log, "gemini generate", func() error {
		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			MaxOutputTokens: int32(maxTokens),
			Temperature:     genai.Ptr(defaultTemperature),
		})
		if err != nil {
			return err
		}
		text := strings.TrimSpace(resp.Text())
		if text == "" {
			return retry.Permanent(fmt.Errorf("empty response from model"))
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generator: gemini: %w", err)
	}

	return answer, nil
}

// GenerateGrounded answers query from the given passages.
func (g *GeminiGenerator) GenerateGrounded(ctx context.Context, query string, passages []string, maxTokens int) (string, error) {
	if len(passages) == 0 {
		return NoContextAnswer, nil
	}
	return g.Generate(ctx, buildGroundedPrompt(query, passages), maxTokens)
}

// StreamGrounded answers query from the given passages, delivering tokens
// as the model emits them. Streaming requests are not retried; an upstream
// failure ends the stream with an error.
func (g *GeminiGenerator) StreamGrounded(ctx context.Context, query string, passages []string) (*TokenStream, error) {
	if len(passages) == 0 {
		return staticStream(ctx, NoContextAnswer), nil
	}

	prompt := buildGroundedPrompt(query, passages)
	return NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		for resp, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
			MaxOutputTokens: int32(DefaultMaxTokens),
			Temperature:     genai.Ptr(defaultTemperature),
		}) {
			if err != nil {
				return fmt.Errorf("generator: gemini: stream failed: %w", err)
			}
			if tok := resp.Text(); tok != "" {
				if !emit(tok) {
					return ctx.Err()
				}
			}
		}
		return nil
	}), nil
}
