package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "summarizer"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 120},
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Policy and abuse metrics
var (
	GateDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gate_decisions_total",
			Help:      "Plan, quota and rate gate outcomes",
		},
		[]string{"gate", "outcome"}, // outcome: "allowed" or the limit that denied
	)

	UnusualPatterns = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unusual_patterns_total",
			Help:      "Requests flagged by the request pattern classifier",
		},
	)

	RatePatternsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_patterns_swept_total",
			Help:      "Idle request patterns removed by the sweeper",
		},
	)
)

// Processing engine metrics
var (
	EngineCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "engine_calls_total",
			Help:      "Calls to the external processing engine",
		},
		[]string{"operation", "status"},
	)

	EngineCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "engine_call_duration_seconds",
			Help:      "Processing engine latency distribution",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 180, 300, 600},
		},
		[]string{"operation"},
	)

	TranslationChunks = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "translation_chunks",
			Help:      "Chunks dispatched per translation",
			Buckets:   []float64{1, 2, 3, 5, 10, 20, 50},
		},
	)

	SummaryFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summary_fallbacks_total",
			Help:      "Summaries built extractively after every engine attempt failed",
		},
	)
)

// Business metrics
var (
	UploadsRecorded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_recorded_total",
			Help:      "Uploads counted against quotas",
		},
		[]string{"tier"},
	)

	ArtifactsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_stored_total",
			Help:      "Artifacts saved to history",
		},
		[]string{"kind"},
	)

	ArtifactsExported = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifacts_exported_total",
			Help:      "Artifacts written to object storage",
		},
	)
)
