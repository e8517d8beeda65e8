package server

import (
	"context"
	"fmt"

	"github.com/ragstack/ragbot/internal/index"
)

// IndexPinger probes the vector index backend. It satisfies the Pinger
// interface and is used by GET /api/ready.
type IndexPinger struct {
	// index is the vector index to probe.
	index index.Index
	// name identifies the backend in readiness responses (e.g. "qdrant").
	name string
}

// NewIndexPinger constructs an IndexPinger for the given index and backend name.
func NewIndexPinger(idx index.Index, name string) *IndexPinger {
	return &IndexPinger{index: idx, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *IndexPinger) Name() string { return p.name }

// Ping delegates to the index's own reachability check.
func (p *IndexPinger) Ping(ctx context.Context) error {
	if err := p.index.Ping(ctx); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	return nil
}

// EmbedderPinger probes the embedding backend by embedding a single short
// query. It satisfies the Pinger interface and is used by GET /api/ready.
// Each probe costs one embedding call, so /api/ready should not be polled
// aggressively.
type EmbedderPinger struct {
	// embed performs the probe call.
	embed func(ctx context.Context) error
	// name identifies the backend in readiness responses (e.g. "gemini").
	name string
}

// NewEmbedderPinger constructs an EmbedderPinger. probe must perform one
// minimal embedding request and return its error.
func NewEmbedderPinger(probe func(ctx context.Context) error, name string) *EmbedderPinger {
	return &EmbedderPinger{embed: probe, name: name}
}

// Name returns the backend label used in readiness responses.
func (p *EmbedderPinger) Name() string { return p.name }

// Ping runs the probe call.
func (p *EmbedderPinger) Ping(ctx context.Context) error {
	if err := p.embed(ctx); err != nil {
		return fmt.Errorf("embed probe failed: %w", err)
	}
	return nil
}
