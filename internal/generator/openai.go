package generator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/ragstack/ragbot/internal/retry"
)

// DefaultOpenAIModel is the chat model used when none is configured.
const DefaultOpenAIModel = "gpt-4o-mini"

// OpenAIGenerator produces answers with the OpenAI chat completion API.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
	policy retry.Policy
	log    *slog.Logger
}

// OpenAIOption customizes an OpenAIGenerator.
type OpenAIOption func(*OpenAIGenerator)

// WithOpenAIModel overrides the chat model.
func WithOpenAIModel(model string) OpenAIOption {
	return func(g *OpenAIGenerator) {
		if model != "" {
			g.model = model
		}
	}
}

// WithOpenAIRetry overrides the retry policy for generation calls.
func WithOpenAIRetry(p retry.Policy) OpenAIOption {
	return func(g *OpenAIGenerator) { g.policy = p }
}

// NewOpenAIGenerator creates an OpenAI-backed generator.
func NewOpenAIGenerator(apiKey string, log *slog.Logger, opts ...OpenAIOption) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("generator: openai: api key is required")
	}
	if log == nil {
		log = slog.Default()
	}

	g := &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  DefaultOpenAIModel,
		policy: retry.Policy{},
		log:    log,
	}
	for _, opt := range opts {
		opt(g)
	}

	return g, nil
}

// Generate produces a completion for prompt, retrying transient failures.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", fmt.Errorf("generator: openai: empty prompt")
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var answer string
	err := g.policy.Do(ctx, g.log, "openai generate", func() error {
		resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:     g.model,
			MaxTokens: maxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
		})
		if err != nil {
			return err
		}
		if len(resp.Choices) == 0 {
			return retry.Permanent(fmt.Errorf("empty response from model"))
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Content)
		if text == "" {
			return retry.Permanent(fmt.Errorf("empty response from model"))
		}
		answer = text
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("generator: openai: %w", err)
	}

	return answer, nil
}

// GenerateGrounded answers query from the given passages.
func (g *OpenAIGenerator) GenerateGrounded(ctx context.Context, query string, passages []string, maxTokens int) (string, error) {
	if len(passages) == 0 {
		return NoContextAnswer, nil
	}
	return g.Generate(ctx, buildGroundedPrompt(query, passages), maxTokens)
}

// StreamGrounded answers query from the given passages, delivering tokens
// as the model emits them.
func (g *OpenAIGenerator) StreamGrounded(ctx context.Context, query string, passages []string) (*TokenStream, error) {
	if len(passages) == 0 {
		return staticStream(ctx, NoContextAnswer), nil
	}

	prompt := buildGroundedPrompt(query, passages)
	return NewStream(ctx, func(ctx context.Context, emit func(string) bool) error {
		stream, err := g.client.CreateChatCompletionStream(ctx, openai.ChatCompletionRequest{
			Model:     g.model,
			MaxTokens: DefaultMaxTokens,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleUser, Content: prompt},
			},
			Stream: true,
		})
		if err != nil {
			return fmt.Errorf("generator: openai: failed to open stream: %w", err)
		}
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return fmt.Errorf("generator: openai: stream failed: %w", err)
			}
			if len(resp.Choices) == 0 {
				continue
			}
			if tok := resp.Choices[0].Delta.Content; tok != "" {
				if !emit(tok) {
					return ctx.Err()
				}
			}
		}
	}), nil
}
