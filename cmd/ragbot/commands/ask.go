package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/generator"
	"github.com/ragstack/ragbot/internal/logging"
	"github.com/ragstack/ragbot/internal/retriever"
)

// stdoutSink streams answer tokens to stdout and remembers the sources for
// printing after the answer completes.
type stdoutSink struct {
	sources []retriever.SourceInfo
}

func (s *stdoutSink) Token(tok string) error {
	_, err := fmt.Print(tok)
	return err
}

func (s *stdoutSink) Sources(sources []retriever.SourceInfo) error {
	s.sources = sources
	return nil
}

// NewAskCmd constructs the `ragbot ask` command, which answers a single
// natural language question from the knowledge base and streams the answer
// to stdout.
func NewAskCmd() *cobra.Command {
	var topK int
	var showSources bool

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the knowledge base",
		Long: `Ask a natural language question grounded in your uploaded documents.

The answer streams to stdout as it is generated. Use --sources to also
print which document chunks the answer was grounded in.

Examples:
  ragbot ask "what are the office opening hours?"
  ragbot ask --top-k 10 "summarise the refund policy"
  ragbot ask --sources "who is the team lead for platform?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := embedder.NewFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			gen, err := generator.NewFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: failed to initialise generator: %w", err)
			}

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = idx.Close() }()

			retr := retriever.New(emb, idx, gen, getEnvInt("TOP_K_RESULTS", retriever.DefaultTopK), log)

			question := strings.Join(args, " ")
			sink := &stdoutSink{}

			result := retr.AnswerStream(ctx, question, topK, sink)
			fmt.Println()

			if !result.Success {
				return fmt.Errorf("ask: %s", result.Err)
			}

			if showSources && len(sink.sources) > 0 {
				fmt.Fprintln(os.Stdout)
				fmt.Fprintln(os.Stdout, "Sources:")
				for i, src := range sink.sources {
					fmt.Fprintf(os.Stdout, "  [%d] %s (chunk %d, score %.3f)\n",
						i+1, src.SourceFile, src.ChunkIndex, src.SimilarityScore)
				}
			}

			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "Number of chunks to retrieve (default: TOP_K_RESULTS or 5)")
	cmd.Flags().BoolVarP(&showSources, "sources", "s", false, "Print source chunks after the answer")

	return cmd
}
