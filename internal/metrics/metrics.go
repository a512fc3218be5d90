// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stagehand"

// Layout move outcomes.
const (
	OutcomeMoved             = "moved"
	OutcomeUnchanged         = "unchanged"
	OutcomeInsufficientSpace = "insufficient_space"
	OutcomeConflict          = "conflict"
	OutcomeUnknownEquipment  = "unknown_equipment"
	OutcomeInvalidInput      = "invalid_input"
	OutcomeError             = "error"
)

var (
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests by method, route pattern and status code",
	}, []string{"method", "route", "status"})

	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and route pattern",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~8s
	}, []string{"method", "route"})

	LayoutMoves = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "layout",
		Name:      "moves_total",
		Help:      "Equipment move requests by outcome",
	}, []string{"outcome"})

	LayoutDisplaced = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "layout",
		Name:      "displaced_items",
		Help:      "Number of items pushed down by a successful move",
		Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
	})

	Uploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "blob",
		Name:      "uploads_total",
		Help:      "Media uploads by outcome",
	}, []string{"outcome"})

	UploadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "blob",
		Name:      "upload_bytes_total",
		Help:      "Total bytes written to blob storage",
	})
)

// ObserveHTTP records one finished HTTP request.
func ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordMove records the outcome of an equipment move. displaced is only
// observed for successful moves.
func RecordMove(outcome string, displaced int) {
	LayoutMoves.WithLabelValues(outcome).Inc()
	if outcome == OutcomeMoved {
		LayoutDisplaced.Observe(float64(displaced))
	}
}

// RecordUpload records a blob upload attempt.
func RecordUpload(outcome string, size int) {
	Uploads.WithLabelValues(outcome).Inc()
	if outcome == "stored" {
		UploadBytes.Add(float64(size))
	}
}

// Handler serves the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
