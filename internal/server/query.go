package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ragstack/ragbot/internal/logging"
	"github.com/ragstack/ragbot/internal/retriever"
	"github.com/ragstack/ragbot/internal/store"
)

// streamDoneFrame terminates every SSE stream. Answer tokens never contain
// it because the generator emits model text verbatim.
const streamDoneFrame = "[DONE]"

// handleQuery handles POST /api/query: run the full pipeline and return the
// answer with its sources as one JSON document.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	start := time.Now()
	result := s.orchestrator.Answer(r.Context(), req.Query, req.TopK)
	elapsed := time.Since(start)

	s.metrics.observeQuery(result.Success, elapsed)
	s.recordQuery(req.Query, result, elapsed, log)

	status := http.StatusOK
	if !result.Success && result.Err == retriever.ErrEmptyQuery {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

// handleQueryStream handles POST /api/query/stream. The response is a
// Server-Sent Events stream:
//
//	data: <token>            (repeated, one frame per token)
//	data: {"sources": [...]} (single JSON frame after the last token)
//	data: [DONE]
//
// Pipeline failures before the first token are delivered as a single JSON
// error frame followed by [DONE].
func (s *Server) handleQueryStream(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	// Empty queries get the blocking endpoint's 400; the check must run
	// before the response commits to SSE.
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: retriever.ErrEmptyQuery})
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "streaming not supported"})
		return
	}

	// Set SSE headers so the client receives a streaming response.
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	s.metrics.queryActiveStreams.Inc()
	defer s.metrics.queryActiveStreams.Dec()

	sink := &sseSink{w: w, flusher: flusher}

	start := time.Now()
	result := s.orchestrator.AnswerStream(r.Context(), req.Query, req.TopK, sink)
	elapsed := time.Since(start)

	s.metrics.observeQuery(result.Success, elapsed)
	s.recordQuery(req.Query, result, elapsed, log)

	if !result.Success {
		frame, err := json.Marshal(errorResponse{Error: result.Err})
		if err == nil {
			fmt.Fprintf(w, "data: %s\n\n", frame)
		}
	}
	fmt.Fprintf(w, "data: %s\n\n", streamDoneFrame)
	flusher.Flush()
}

// recordQuery appends the query outcome to the history store, if one is
// configured. Recording failures are logged, never surfaced to the client.
func (s *Server) recordQuery(query string, result retriever.Result, elapsed time.Duration, log *slog.Logger) {
	if s.history == nil {
		return
	}
	// Use a fresh context: the request context may already be cancelled
	// when a streaming client disconnects.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := s.history.Append(ctx, store.Entry{
		Query:      query,
		Answer:     result.Answer,
		Success:    result.Success,
		ChunksUsed: result.ChunksUsed,
		Duration:   elapsed,
	})
	if err != nil {
		log.Warn("failed to record query history", slog.Any("error", err))
	}
}

// sseSink adapts an http.ResponseWriter to the retriever's streaming sink,
// emitting each event as an SSE data frame and flushing immediately.
type sseSink struct {
	// w is the underlying response writer.
	w http.ResponseWriter

	// flusher flushes buffered data to the client after each write.
	flusher http.Flusher
}

// Token writes one answer fragment as a data frame. Each newline in tok is
// prefixed with "data: " so multi-line fragments never break the SSE frame
// boundary.
func (s *sseSink) Token(tok string) error {
	lines := strings.Split(strings.TrimRight(tok, "\n"), "\n")
	var buf strings.Builder
	for _, line := range lines {
		buf.WriteString("data: ")
		buf.WriteString(line)
		buf.WriteString("\n")
	}
	buf.WriteString("\n")
	if _, err := fmt.Fprint(s.w, buf.String()); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Sources writes the attribution envelope as a single JSON data frame.
func (s *sseSink) Sources(sources []retriever.SourceInfo) error {
	frame, err := json.Marshal(map[string][]retriever.SourceInfo{"sources": sources})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", frame); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
