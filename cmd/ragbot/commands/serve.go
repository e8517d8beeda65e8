package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ragstack/ragbot/internal/embedder"
	"github.com/ragstack/ragbot/internal/generator"
	"github.com/ragstack/ragbot/internal/ingest"
	"github.com/ragstack/ragbot/internal/logging"
	"github.com/ragstack/ragbot/internal/retriever"
	"github.com/ragstack/ragbot/internal/server"
	"github.com/ragstack/ragbot/internal/store"
)

// NewServeCmd constructs the `ragbot serve` command, which starts the HTTP
// server exposing the query and document management API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the ragbot HTTP server",
		Long: `Start the ragbot HTTP server on localhost.

The server exposes a REST/SSE API for querying the knowledge base and
managing uploaded documents. Token-level streaming is available on
POST /api/query/stream.

Examples:
  ragbot serve
  ragbot serve --port 9090
  MODEL_PROVIDER=openai ragbot serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			emb, err := embedder.NewFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}
			log.Info("embedder initialised",
				slog.String("backend", embedder.ResolveBackend()),
				slog.Int("dimensions", emb.Dimensions()),
			)

			gen, err := generator.NewFromEnv(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: failed to initialise generator: %w", err)
			}
			log.Info("generator initialised", slog.String("backend", generator.ResolveBackend()))

			idx, err := buildIndex(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = idx.Close() }()

			sp, err := buildSplitter()
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pipeline, err := ingest.New(getEnvOrDefault("UPLOAD_DIR", ingest.DefaultUploadDir), sp, emb, idx, log)
			if err != nil {
				return fmt.Errorf("serve: failed to create ingest pipeline: %w", err)
			}

			retr := retriever.New(emb, idx, gen, getEnvInt("TOP_K_RESULTS", retriever.DefaultTopK), log)

			// Open query history store. RAGBOT_HISTORY_DB overrides the
			// default path (~/.ragbot/history.db). Set to "disabled" to disable.
			var historyStore store.HistoryStore
			dbPath := os.Getenv("RAGBOT_HISTORY_DB")
			if dbPath != "disabled" {
				if dbPath == "" {
					dbPath, err = store.DefaultDBPath()
					if err != nil {
						log.Warn("history: could not resolve default DB path, disabling", slog.Any("error", err))
					}
				}
				if dbPath != "" {
					hs, hsErr := store.Open(dbPath)
					if hsErr != nil {
						log.Warn("history: failed to open store, disabling", slog.Any("error", hsErr))
					} else {
						historyStore = hs
						defer func() { _ = hs.Close() }()
						log.Info("history: store opened", slog.String("path", dbPath))
					}
				}
			} else {
				log.Info("history: disabled via RAGBOT_HISTORY_DB=disabled")
			}

			pingers := []server.Pinger{
				server.NewIndexPinger(idx, getEnvOrDefault("VECTOR_BACKEND", "qdrant")),
				server.NewEmbedderPinger(func(ctx context.Context) error {
					_, probeErr := emb.Embed(ctx, "ping", embedder.ModeQuery)
					return probeErr
				}, embedder.ResolveBackend()),
			}

			if !cmd.Flags().Changed("host") {
				host = getEnvOrDefault("RAGBOT_HOST", host)
			}
			if !cmd.Flags().Changed("port") {
				port = getEnvInt("RAGBOT_PORT", port)
			}

			srv, err := server.New(retr, pipeline, idx, historyStore, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("RAGBOT_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
