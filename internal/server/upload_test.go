package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ragstack/ragbot/internal/ingest"
)

// fakeIngestor implements the ingestor interface for tests.
type fakeIngestor struct {
	// result is returned on each Ingest call.
	result ingest.Result
	// err is returned as the error value.
	err error
	// gotFilename records the last call for assertions.
	gotFilename string
}

func (f *fakeIngestor) Ingest(_ context.Context, filename string, r io.Reader, _ int64) (ingest.Result, error) {
	f.gotFilename = filename
	_, _ = io.Copy(io.Discard, r)
	return f.result, f.err
}

func newUploadTestServer(ing ingestor) *Server {
	return &Server{
		ingestor: ing,
		cfg:      &Config{Port: 8080},
		log:      slog.Default(),
		metrics:  newServerMetrics(prometheus.NewRegistry()),
	}
}

// multipartBody builds a multipart request body with a single "file" part.
func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestHandleUpload_Success(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{result: ingest.Result{
		Success:       true,
		Message:       "Successfully processed about_me.txt",
		Filename:      "about_me.txt",
		ChunksCreated: 4,
	}}
	s := newUploadTestServer(ing)

	body, contentType := multipartBody(t, "file", "about_me.txt", "I am a software engineer.")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ing.gotFilename != "about_me.txt" {
		t.Errorf("ingestor saw filename %q", ing.gotFilename)
	}
	var resp ingest.Result
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success || resp.ChunksCreated != 4 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHandleUpload_MissingFileField(t *testing.T) {
	t.Parallel()

	s := newUploadTestServer(&fakeIngestor{})

	body, contentType := multipartBody(t, "document", "about_me.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_NotMultipart(t *testing.T) {
	t.Parallel()

	s := newUploadTestServer(&fakeIngestor{})

	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader([]byte(`{"file":"x"}`)))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestHandleUpload_RejectedDocument(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{result: ingest.Result{
		Message:  "File type not allowed",
		Filename: "notes.docx",
		Err:      "extract: unsupported file type",
	}}
	s := newUploadTestServer(ing)

	body, contentType := multipartBody(t, "file", "notes.docx", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for rejected document, got %d", w.Code)
	}
}

func TestHandleUpload_IngestError(t *testing.T) {
	t.Parallel()

	ing := &fakeIngestor{err: errors.New("disk full")}
	s := newUploadTestServer(ing)

	body, contentType := multipartBody(t, "file", "about_me.txt", "text")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	w := httptest.NewRecorder()

	s.handleUpload(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}
}
