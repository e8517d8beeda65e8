// Package commands defines all Cobra CLI commands for the ragbot binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ragstack/ragbot/internal/audit"
	"github.com/ragstack/ragbot/internal/config"
	"github.com/ragstack/ragbot/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ragbot",
		Short: "ragbot — retrieval-augmented Q&A over your own documents",
		Long: `ragbot answers natural language questions grounded in documents you upload.

Documents are split into overlapping chunks, embedded, and stored in a
vector index. Queries retrieve the most similar chunks and an LLM
generates a concise answer from them, with source attribution.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.ragbot/config.yaml).
See 'ragbot --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			// Load .env from the working directory if present. Real env
			// vars are never overwritten.
			_ = godotenv.Load()

			log := logging.New()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.ragbot/config.yaml)")

	root.AddCommand(
		NewAskCmd(),
		NewUploadCmd(),
		NewSourcesCmd(),
		NewServeCmd(),
		NewVersionCmd(),
	)

	return root
}
