package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/ragstack/ragbot/internal/index"
	"github.com/ragstack/ragbot/internal/ingest"
	"github.com/ragstack/ragbot/internal/retriever"
	"github.com/ragstack/ragbot/internal/store"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
}

// orchestrator is the interface the query handlers call to run the retrieval
// pipeline. *retriever.Retriever satisfies it; tests inject a fake.
type orchestrator interface {
	// Answer runs the blocking pipeline for query.
	Answer(ctx context.Context, query string, topK int) retriever.Result
	// AnswerStream runs the pipeline, delivering tokens and sources to sink.
	AnswerStream(ctx context.Context, query string, topK int, sink retriever.StreamSink) retriever.Result
}

// ingestor is the interface the upload handler calls to process a document.
// *ingest.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	// Ingest persists and processes one uploaded document.
	Ingest(ctx context.Context, filename string, r io.Reader, size int64) (ingest.Result, error)
}

// Server is the HTTP server exposing the chatbot API.
type Server struct {
	// orchestrator runs the query pipeline.
	orchestrator orchestrator
	// ingestor runs the document pipeline for uploads.
	ingestor ingestor
	// index serves the document administration endpoints.
	index index.Index
	// history records answered queries. Nil disables recording.
	history store.HistoryStore
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds this server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query and /api/query/stream.
type queryRequest struct {
	// Query is the user's question.
	Query string `json:"query"`
	// TopK overrides the configured passage count when positive.
	TopK int `json:"top_k,omitempty"`
}

// deleteResponse is the JSON response for DELETE /api/documents/{filename}.
type deleteResponse struct {
	// Success is true when the document existed and was removed.
	Success bool `json:"success"`
	// Message describes the outcome.
	Message string `json:"message"`
}

// documentsResponse is the JSON response for GET /api/documents.
type documentsResponse struct {
	// Success is always true on a 200 response.
	Success bool `json:"success"`
	// Documents is the sorted list of source filenames in the index.
	Documents []string `json:"documents"`
	// TotalDocuments is len(Documents).
	TotalDocuments int `json:"total_documents"`
	// TotalChunks is the number of chunks across all documents.
	TotalChunks int `json:"total_chunks"`
}

// resetResponse is the JSON response for POST /api/reset.
type resetResponse struct {
	// Success is true when the index was cleared.
	Success bool `json:"success"`
	// Message describes the outcome.
	Message string `json:"message"`
}

// errorResponse is the JSON body for request-level failures.
type errorResponse struct {
	// Success is always false.
	Success bool `json:"success"`
	// Error describes the failure.
	Error string `json:"error"`
}
