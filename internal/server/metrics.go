// Package server — metrics.go registers all Prometheus metrics for the HTTP
// server and exposes helpers used by handlers and middleware.
package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metric label values shared across registrations.
const (
	// labelHandler is the "handler" label value used to partition metrics by
	// the logical endpoint name rather than the raw URL path.
	labelHandler = "handler"

	outcomeOK    = "ok"
	outcomeError = "error"
)

// serverMetrics holds all Prometheus metrics owned by the HTTP server.
// A single instance is created in New and stored on Server so that tests can
// inject a fresh prometheus.Registry without polluting the default one.
type serverMetrics struct {
	// queryRequestsTotal counts completed query requests, partitioned by
	// outcome: "ok" or "error".
	queryRequestsTotal *prometheus.CounterVec

	// queryDurationSeconds records the wall-clock duration of each query
	// from first byte received to response (or stream) completion.
	queryDurationSeconds *prometheus.HistogramVec

	// queryActiveStreams is the number of /api/query/stream SSE streams
	// currently open.
	queryActiveStreams prometheus.Gauge

	// uploadsTotal counts document uploads, partitioned by outcome.
	uploadsTotal *prometheus.CounterVec

	// chunksCreatedTotal counts chunks stored in the index via uploads.
	chunksCreatedTotal prometheus.Counter

	// httpRequestsTotal counts all HTTP requests handled by the mux,
	// partitioned by method, path pattern, and status code.
	httpRequestsTotal *prometheus.CounterVec

	// httpDurationSeconds records the latency of all HTTP requests.
	httpDurationSeconds *prometheus.HistogramVec
}

// newServerMetrics registers all server metrics against reg and returns the
// populated serverMetrics. promauto.With(reg) is used so that each call
// registers into the provided registry rather than the global default —
// this keeps unit tests hermetic.
func newServerMetrics(reg prometheus.Registerer) *serverMetrics {
	factory := promauto.With(reg)

	return &serverMetrics{
		queryRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragbot",
			Subsystem: "query",
			Name:      "requests_total",
			Help:      "Total number of query requests completed, partitioned by outcome.",
		}, []string{"outcome"}),

		queryDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragbot",
			Subsystem: "query",
			Name:      "duration_seconds",
			Help:      "Wall-clock duration of query requests from receipt to completion.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"outcome"}),

		queryActiveStreams: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "ragbot",
			Subsystem: "query",
			Name:      "active_streams",
			Help:      "Number of /api/query/stream SSE streams currently open.",
		}),

		uploadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragbot",
			Subsystem: "upload",
			Name:      "documents_total",
			Help:      "Total number of document uploads, partitioned by outcome.",
		}, []string{"outcome"}),

		chunksCreatedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "ragbot",
			Subsystem: "upload",
			Name:      "chunks_created_total",
			Help:      "Total number of chunks stored in the index via uploads.",
		}),

		httpRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ragbot",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the server, partitioned by method, handler, and status code.",
		}, []string{"method", labelHandler, "code"}),

		httpDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ragbot",
			Subsystem: "http",
			Name:      "duration_seconds",
			Help:      "Latency of HTTP requests handled by the server.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", labelHandler}),
	}
}

// observeHTTP records one completed HTTP request.
func (m *serverMetrics) observeHTTP(method, path string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.httpDurationSeconds.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// observeQuery records one completed query request.
func (m *serverMetrics) observeQuery(success bool, elapsed time.Duration) {
	outcome := outcomeOK
	if !success {
		outcome = outcomeError
	}
	m.queryRequestsTotal.WithLabelValues(outcome).Inc()
	m.queryDurationSeconds.WithLabelValues(outcome).Observe(elapsed.Seconds())
}

// observeUpload records one completed upload.
func (m *serverMetrics) observeUpload(success bool, chunks int) {
	outcome := outcomeOK
	if !success {
		outcome = outcomeError
	}
	m.uploadsTotal.WithLabelValues(outcome).Inc()
	if chunks > 0 {
		m.chunksCreatedTotal.Add(float64(chunks))
	}
}
