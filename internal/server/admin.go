package server

import (
	"fmt"
	"net/http"

	"github.com/ragstack/ragbot/internal/logging"
)

// handleDeleteDocument handles DELETE /api/documents/{filename}: remove a
// document and all its chunks from the index.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	filename := r.PathValue("filename")
	if filename == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "filename is required"})
		return
	}

	if !s.index.DeleteBySource(r.Context(), filename) {
		writeJSON(w, http.StatusNotFound, deleteResponse{
			Message: fmt.Sprintf("Document %s not found", filename),
		})
		return
	}

	log.Info("document deleted", "file", filename)
	writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Deleted %s", filename),
	})
}

// handleListDocuments handles GET /api/documents: list every source file in
// the index with aggregate chunk counts.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	stats := s.index.Stats(r.Context())

	writeJSON(w, http.StatusOK, documentsResponse{
		Success:        true,
		Documents:      stats.Sources,
		TotalDocuments: stats.TotalSources,
		TotalChunks:    stats.TotalChunks,
	})
}

// handleStats handles GET /api/stats: report index totals.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.index.Stats(r.Context()))
}

// handleReset handles POST /api/reset: drop every document from the index.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	if !s.index.Reset(r.Context()) {
		writeJSON(w, http.StatusInternalServerError, resetResponse{
			Message: "Failed to reset database",
		})
		return
	}

	log.Warn("index reset: all documents deleted")
	writeJSON(w, http.StatusOK, resetResponse{
		Success: true,
		Message: "Database reset successfully. All data deleted.",
	})
}
