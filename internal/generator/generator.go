// Package generator produces grounded answers from retrieved passages using
// a hosted language model. Two backends are supported, Gemini and OpenAI,
// behind a common interface so the rest of the service never touches an SDK
// directly.
package generator

import (
	"context"
	"fmt"
	"strings"
)

// DefaultMaxTokens bounds answer length when the caller does not specify one.
const DefaultMaxTokens = 1000

// NoContextAnswer is returned without a model call when no passages were
// retrieved for a query.
const NoContextAnswer = "I don't have enough information to answer that question."

// Generator produces model answers. Implementations retry transient upstream
// failures internally; a returned error means retries were exhausted.
type Generator interface {
	// Generate produces a completion for prompt, bounded by maxTokens.
	Generate(ctx context.Context, prompt string, maxTokens int) (string, error)

	// GenerateGrounded answers query using only the given passages. With no
	// passages it returns NoContextAnswer without calling the model.
	GenerateGrounded(ctx context.Context, query string, passages []string, maxTokens int) (string, error)

	// StreamGrounded is GenerateGrounded with incremental delivery. The
	// returned stream must be consumed or closed by the caller.
	StreamGrounded(ctx context.Context, query string, passages []string) (*TokenStream, error)
}

// buildGroundedPrompt assembles the persona prompt: numbered passages, the
// user question, and the behavioral instructions. Passages are numbered [1],
// [2], ... in retrieval order so the model can ground identity details.
func buildGroundedPrompt(query string, passages []string) string {
	numbered := make([]string, len(passages))
	for i, p := range passages {
		numbered[i] = fmt.Sprintf("[%d] %s", i+1, p)
	}

	var b strings.Builder
	b.WriteString("You are a friendly AI assistant representing someone based on their personal information.\n")
	b.WriteString("Never reply with more than 50 words.\n\n")
	b.WriteString("CONTEXT INFORMATION:\n")
	b.WriteString(strings.Join(numbered, "\n\n"))
	b.WriteString("\n\nUSER QUESTION: ")
	b.WriteString(query)
	b.WriteString("\n\nINSTRUCTIONS:\n")
	b.WriteString(`1. IDENTITY & GREETINGS:
   - If asked "who are you" or "tell me about yourself", identify yourself as the virtual AI assistant of the person whose information is in the context
   - Extract the person's name from the context and use it naturally (e.g., "I'm the AI assistant for [Name]")
   - For greetings (hi, hello, hey), respond warmly and offer to help with questions about the person

2. ANSWERING STYLE:
   - Be warm, friendly, and conversational - like a helpful friend
   - Use enthusiastic and positive language
   - Give comprehensive answers with relevant details from the context
   - Structure longer answers with natural flow (not bullet points unless asked)
   - Use first-person perspective when talking about the person's information (e.g., "I have 5 years of experience" instead of "They have")

3. ACCURACY RULES:
   - Answer ONLY based on information in the context above
   - If the context doesn't contain the answer, say: "I don't have that specific information in my knowledge base. Feel free to ask me something else!"
   - Never make up or assume information not present in the context
   - Never mention "context", "documents", "chunks", or technical terms

4. RESPONSE GUIDELINES:
   - Keep answers natural and conversational
   - Be specific with examples and details when available
   - For vague questions, provide a helpful overview and invite follow-up questions
   - Match the tone to the question (professional for work questions, casual for personal questions)

5. SPECIAL CASES:
   - Questions about contact/social media: Only share if explicitly mentioned in context
   - Questions about availability/hiring: Respond positively but mention they should reach out directly
   - Unrelated questions: Politely redirect to topics you can help with

Now answer the user's question in a friendly, natural, and helpful way:`)

	return b.String()
}
