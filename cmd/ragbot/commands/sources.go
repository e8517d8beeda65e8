package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragbot/internal/logging"
)

// NewSourcesCmd constructs the `ragbot sources` command group for managing
// indexed documents.
func NewSourcesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sources",
		Short: "Manage documents stored in the vector index",
		Long: `List, inspect, and remove documents stored in the vector index.

Examples:
  ragbot sources list
  ragbot sources stats
  ragbot sources delete handbook.pdf
  ragbot sources reset --yes`,
	}

	cmd.AddCommand(
		newSourcesListCmd(),
		newSourcesStatsCmd(),
		newSourcesDeleteCmd(),
		newSourcesResetCmd(),
	)

	return cmd
}

// newSourcesListCmd lists the distinct source files in the index.
func newSourcesListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List indexed documents",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			defer func() { _ = idx.Close() }()

			sources := idx.ListSources(ctx)
			if len(sources) == 0 {
				fmt.Println("No documents indexed.")
				return nil
			}
			for _, s := range sources {
				fmt.Println(s)
			}
			return nil
		},
	}
}

// newSourcesStatsCmd prints chunk and document counts for the index.
func newSourcesStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			defer func() { _ = idx.Close() }()

			stats := idx.Stats(ctx)
			fmt.Printf("Documents: %d\n", stats.TotalSources)
			fmt.Printf("Chunks:    %d\n", stats.TotalChunks)
			return nil
		},
	}
}

// newSourcesDeleteCmd removes all chunks belonging to one document.
func newSourcesDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete [filename]",
		Short: "Delete a document from the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			defer func() { _ = idx.Close() }()

			filename := args[0]
			if !idx.DeleteBySource(ctx, filename) {
				return fmt.Errorf("sources: Document %s not found", filename)
			}
			fmt.Printf("Deleted %s\n", filename)
			return nil
		},
	}
}

// newSourcesResetCmd wipes the entire index after confirmation.
func newSourcesResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete ALL documents from the index",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()

			if !yes {
				fmt.Print("This deletes every indexed document. Type 'yes' to continue: ")
				reader := bufio.NewReader(os.Stdin)
				line, _ := reader.ReadString('\n')
				if strings.TrimSpace(line) != "yes" {
					fmt.Println("Aborted.")
					return nil
				}
			}

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("sources: %w", err)
			}
			defer func() { _ = idx.Close() }()

			if !idx.Reset(ctx) {
				return fmt.Errorf("sources: Failed to reset database")
			}
			fmt.Println("Database reset successfully. All data deleted.")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}
