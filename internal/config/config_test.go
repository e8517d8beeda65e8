package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_NoFile(t *testing.T) {
	t.Parallel()

	log := slog.Default()
	path, err := Load("/nonexistent/path/config.yaml", log)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Errorf("expected empty path, got %q", path)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: openai
  name: gpt-4o
embedding:
  provider: gemini
  model: gemini-embedding-001
  dimensions: 768
index:
  backend: qdrant
  qdrant:
    host: qdrant.internal
    port: 6334
    collection: my-docs
chunking:
  size: 1200
  overlap: 150
retrieval:
  top_k: 8
ingest:
  upload_dir: /srv/ragbot/uploads
logging:
  level: debug
  format: text
`)

	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Clear env vars that the YAML should set.
	envKeys := []string{
		"MODEL_PROVIDER", "LLM_MODEL",
		"EMBEDDING_PROVIDER", "EMBEDDING_MODEL", "EMBEDDING_DIMENSIONS",
		"VECTOR_BACKEND", "QDRANT_HOST", "QDRANT_PORT", "QDRANT_COLLECTION",
		"CHUNK_SIZE", "CHUNK_OVERLAP", "TOP_K_RESULTS", "UPLOAD_DIR",
		"LOG_LEVEL", "LOG_FORMAT",
	}
	for _, k := range envKeys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	log := slog.Default()
	loaded, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded != cfgPath {
		t.Errorf("loaded path: got %q, want %q", loaded, cfgPath)
	}

	checks := map[string]string{
		"MODEL_PROVIDER":       "openai",
		"LLM_MODEL":            "gpt-4o",
		"EMBEDDING_PROVIDER":   "gemini",
		"EMBEDDING_MODEL":      "gemini-embedding-001",
		"EMBEDDING_DIMENSIONS": "768",
		"VECTOR_BACKEND":       "qdrant",
		"QDRANT_HOST":          "qdrant.internal",
		"QDRANT_PORT":          "6334",
		"QDRANT_COLLECTION":    "my-docs",
		"CHUNK_SIZE":           "1200",
		"CHUNK_OVERLAP":        "150",
		"TOP_K_RESULTS":        "8",
		"UPLOAD_DIR":           "/srv/ragbot/uploads",
		"LOG_LEVEL":            "debug",
		"LOG_FORMAT":           "text",
	}
	for k, want := range checks {
		got := os.Getenv(k)
		if got != want {
			t.Errorf("%s: got %q, want %q", k, got, want)
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := []byte(`
model:
  provider: openai
`)
	if err := os.WriteFile(cfgPath, content, 0o644); err != nil {
		t.Fatal(err)
	}

	// Set env var BEFORE loading — it should NOT be overwritten.
	t.Setenv("MODEL_PROVIDER", "gemini")

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if got := os.Getenv("MODEL_PROVIDER"); got != "gemini" {
		t.Errorf("MODEL_PROVIDER: expected env override %q, got %q", "gemini", got)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(cfgPath, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	log := slog.Default()
	_, err := Load(cfgPath, log)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
}

func TestIntStr(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   int
		want string
	}{
		{0, ""},
		{5, "5"},
		{6334, "6334"},
	}
	for _, tt := range tests {
		if got := intStr(tt.in); got != tt.want {
			t.Errorf("intStr(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
