// Package server implements the HTTP server that exposes the RAG chatbot:
// query and streaming-query endpoints, document upload and administration,
// health and readiness probes, and Prometheus metrics.
// The server is started by the `ragbot serve` CLI command.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ragstack/ragbot/internal/index"
	"github.com/ragstack/ragbot/internal/logging"
	"github.com/ragstack/ragbot/internal/store"
)

// New constructs a Server from the pipeline components and config.
// history may be nil to disable query recording.
func New(orch orchestrator, ing ingestor, idx index.Index, history store.HistoryStore, cfg *Config) (*Server, error) {
	if orch == nil {
		return nil, fmt.Errorf("server: orchestrator must not be nil")
	}
	if ing == nil {
		return nil, fmt.Errorf("server: ingestor must not be nil")
	}
	if idx == nil {
		return nil, fmt.Errorf("server: index must not be nil")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 30 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		// WriteTimeout must be long enough for streaming responses.
		cfg.WriteTimeout = 5 * time.Minute
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = defaultRateBurst
	}

	log := cfg.Logger
	if log == nil {
		log = logging.New()
	}

	registry := prometheus.NewRegistry()

	s := &Server{
		orchestrator: orch,
		ingestor:     ing,
		index:        idx,
		history:      history,
		cfg:          cfg,
		log:          log,
		pingers:      cfg.Pingers,
		metrics:      newServerMetrics(registry),
	}

	rl, stopRL := newRateLimiter(cfg.RateLimit, cfg.RateBurst, log)
	s.stopRL = stopRL

	if cfg.APIKey == "" {
		log.Warn("api authentication disabled: no API key configured")
	}

	mux := http.NewServeMux()
	mux.Handle("POST /api/query", s.protected(rl, http.HandlerFunc(s.handleQuery)))
	mux.Handle("POST /api/query/stream", s.protected(rl, http.HandlerFunc(s.handleQueryStream)))
	mux.Handle("POST /api/upload", s.protected(rl, http.HandlerFunc(s.handleUpload)))
	mux.Handle("DELETE /api/documents/{filename}", s.protected(rl, http.HandlerFunc(s.handleDeleteDocument)))
	mux.Handle("GET /api/documents", s.protected(rl, http.HandlerFunc(s.handleListDocuments)))
	mux.Handle("GET /api/stats", s.protected(rl, http.HandlerFunc(s.handleStats)))
	mux.Handle("POST /api/reset", s.protected(rl, http.HandlerFunc(s.handleReset)))
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/ready", s.handleReady)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      requestLogger(log, s.metrics, corsHeaders(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return s, nil
}

// protected wraps a handler with the auth and rate-limit middleware applied
// to every /api route that mutates or reads user data.
func (s *Server) protected(rl *rateLimiter, h http.Handler) http.Handler {
	return authMiddleware(s.cfg.APIKey, rl.middleware(h))
}

// Start begins listening and serving HTTP requests. It blocks until the
// context is cancelled, then performs a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.log.Info("server listening", "addr", "http://"+s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		s.stopRL()
		return fmt.Errorf("server: listen error: %w", err)
	case <-ctx.Done():
		s.stopRL()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server: graceful shutdown failed: %w", err)
		}
		return nil
	}
}
