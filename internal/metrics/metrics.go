package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "aupoz",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"method", "route"},
	)

	// Ingest outcomes: stored, deduped, rejected, failed
	AssetsIngestedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Name:      "assets_ingested_total",
			Help:      "Asset ingest attempts by result",
		},
		[]string{"result"},
	)

	// Bytes newly stored (dedup hits excluded)
	AssetBytesStoredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Name:      "asset_bytes_stored_total",
			Help:      "Total payload bytes written to the asset store",
		},
	)

	CalendarMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Name:      "calendar_mutations_total",
			Help:      "Calendar event mutations by operation",
		},
		[]string{"operation"},
	)

	ImageGenerationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Name:      "image_generations_total",
			Help:      "Image generation requests by model and result",
		},
		[]string{"model", "result"},
	)

	RateLimitedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "aupoz",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the token bucket",
		},
		[]string{"route"},
	)
)

// Ingest results.
const (
	IngestStored   = "stored"
	IngestDeduped  = "deduped"
	IngestRejected = "rejected"
	IngestFailed   = "failed"
)

// RecordRequest records an HTTP request
func RecordRequest(method, route, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(durationSec)
}

// RecordIngest records the outcome of one ingest call
func RecordIngest(result string, storedBytes int64) {
	AssetsIngestedTotal.WithLabelValues(result).Inc()
	if result == IngestStored {
		AssetBytesStoredTotal.Add(float64(storedBytes))
	}
}

// RecordCalendarMutation counts a create, update or delete
func RecordCalendarMutation(operation string) {
	CalendarMutationsTotal.WithLabelValues(operation).Inc()
}

// RecordImageGeneration counts a provider call outcome
func RecordImageGeneration(model, result string) {
	ImageGenerationsTotal.WithLabelValues(model, result).Inc()
}

// RecordRateLimited counts a throttled request.
func RecordRateLimited(route string) {
	RateLimitedTotal.WithLabelValues(route).Inc()
}
