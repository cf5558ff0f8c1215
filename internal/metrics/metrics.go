package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// API Metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyreel_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline Metrics
	VideoSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_video_submissions_total",
			Help: "Total number of video submissions",
		},
		[]string{"outcome"},
	)

	PipelineStageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyreel_pipeline_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
		[]string{"stage"},
	)

	// Provider Metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_provider_requests_total",
			Help: "Total number of requests to the external video data provider",
		},
		[]string{"endpoint", "status"},
	)

	ProviderFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_provider_failures_total",
			Help: "Provider calls recovered with a degraded result",
		},
		[]string{"endpoint"},
	)

	// Quota Metrics
	QuotaRejectionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyreel_quota_rejections_total",
			Help: "Submissions rejected by the daily quota gate",
		},
	)

	// Generation Metrics
	GenerationCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_generation_calls_total",
			Help: "Total number of generative model calls",
		},
		[]string{"operation", "status"},
	)

	GenerationTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyreel_generation_tokens_total",
			Help: "Total tokens consumed by generative calls",
		},
		[]string{"operation", "direction"},
	)

	GenerationCostTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyreel_generation_cost_dollars_total",
			Help: "Accumulated generative cost in dollars",
		},
	)

	// Telemetry Metrics
	TelemetryWriteFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyreel_telemetry_write_failures_total",
			Help: "Usage telemetry writes that failed and were discarded",
		},
	)
)
