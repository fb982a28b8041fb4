// Package metrics declares the Prometheus collectors for the materials
// pipeline. Collectors register with the default registry and are exposed
// by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RetryRuns counts coordinator passes by result (ok, scan_failed).
	RetryRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scry_retry_runs_total",
			Help: "Total number of retry coordinator passes",
		},
		[]string{"result"},
	)

	// RetryVideos counts videos handled by the coordinator per outcome.
	RetryVideos = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scry_retry_videos_total",
			Help: "Total number of videos handled by the retry coordinator",
		},
		[]string{"outcome"},
	)

	// RetryErrorTypes counts retried videos by their stored error type.
	RetryErrorTypes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scry_retry_error_types_total",
			Help: "Total number of retried videos by last classified error type",
		},
		[]string{"error_type"},
	)

	// RetryRunDuration tracks how long a coordinator pass takes.
	RetryRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scry_retry_run_duration_seconds",
			Help:    "Retry coordinator pass duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// JobDuration tracks per-video processing time by strategy.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scry_job_duration_seconds",
			Help:    "Per-video processing duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		},
		[]string{"strategy"},
	)

	// GenerationFailures counts classified generation failures by kind.
	GenerationFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scry_generation_failures_total",
			Help: "Total number of classified generation failures",
		},
		[]string{"error_type"},
	)

	// GenerationTokens counts tokens reported by the provider.
	GenerationTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scry_generation_tokens_total",
			Help: "Total number of tokens consumed by generation calls",
		},
		[]string{"type"},
	)

	// EmbeddingFailures counts embedding backfills that failed.
	EmbeddingFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "scry_embedding_failures_total",
			Help: "Total number of failed embedding backfills",
		},
	)
)
