package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/ingest"
	"github.com/ragstack/ragbot/internal/logging"
)

// NewUploadCmd constructs the `ragbot upload` command, which ingests local
// documents into the vector index.
func NewUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [file...]",
		Short: "Upload documents into the knowledge base",
		Long: `Ingest one or more local documents into the vector index.

Each document is split into overlapping chunks, embedded, and stored so
it can be retrieved at query time. Supported formats: .txt, .md, .pdf.

Examples:
  ragbot upload handbook.pdf
  ragbot upload notes/*.md
  CHUNK_SIZE=1500 ragbot upload policies.txt`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			emb, err := embedder.NewFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("upload: failed to initialise embedder: %w", err)
			}

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}
			defer func() { _ = idx.Close() }()

			sp, err := buildSplitter()
			if err != nil {
				return fmt.Errorf("upload: %w", err)
			}

			pipeline, err := ingest.New(getEnvOrDefault("UPLOAD_DIR", ingest.DefaultUploadDir), sp, emb, idx, log)
			if err != nil {
				return fmt.Errorf("upload: failed to create ingest pipeline: %w", err)
			}

			failures := 0
			for _, path := range args {
				result, err := pipeline.IngestFile(ctx, path)
				if err != nil {
					fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
					failures++
					continue
				}
				if !result.Success {
					fmt.Fprintf(os.Stderr, "%s: %s\n", path, result.Err)
					failures++
					continue
				}
				fmt.Printf("%s (%d chunks)\n", result.Message, result.ChunksCreated)
			}

			if failures > 0 {
				return fmt.Errorf("upload: %d of %d documents failed", failures, len(args))
			}
			return nil
		},
	}

	return cmd
}
