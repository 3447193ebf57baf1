// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	RAGRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_requests_total",
			Help: "Answer requests by outcome status code",
		},
		[]string{"status"},
	)

	RAGRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_request_duration_seconds",
			Help:    "End to end answer latency",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"origin"},
	)

	SynthesisAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_synthesis_attempts_total",
			Help: "Synthesis attempts per provider matrix cell and outcome",
		},
		[]string{"provider", "region", "model", "outcome"},
	)

	FallbackAnswers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_fallback_total",
			Help: "Answers built by the extractive formatter, by reason",
		},
		[]string{"reason"},
	)

	RetrievalDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "rag_retrieval_duration_seconds",
			Help: "Latency of the retrieval backend call",
		},
		[]string{"backend"},
	)

	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_cache_lookups_total",
			Help: "Cache lookups by result",
		},
		[]string{"cache", "result"},
	)
)

// Outcome labels for SynthesisAttempts.
const (
	OutcomeSuccess = "success"
	OutcomeEmpty   = "empty"
	OutcomeTimeout = "timeout"
	OutcomeError   = "error"
)
