package server

import (
	"errors"
	"net/http"

	"github.com/ragstack/ragbot/internal/extract"
	"github.com/ragstack/ragbot/internal/logging"
)

// multipartMemoryLimit bounds how much of a multipart body is held in memory
// before spilling to temp files.
const multipartMemoryLimit = 4 << 20 // 4 MiB

// handleUpload handles POST /api/upload: accept a multipart document and run
// it through the ingestion pipeline.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	log := logging.FromContext(r.Context())

	// Reject bodies over the limit before buffering the whole file.
	r.Body = http.MaxBytesReader(w, r.Body, extract.MaxFileSize+multipartMemoryLimit)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file exceeds size limit"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid multipart body"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "file field is required"})
		return
	}
	defer file.Close()

	result, err := s.ingestor.Ingest(r.Context(), header.Filename, file, header.Size)
	if err != nil {
		log.Error("upload failed", "file", header.Filename, "error", err)
		s.metrics.observeUpload(false, 0)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "failed to process upload"})
		return
	}

	s.metrics.observeUpload(result.Success, result.ChunksCreated)

	status := http.StatusOK
	if !result.Success {
		// The pipeline rejected the document (type, size, or content).
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}
