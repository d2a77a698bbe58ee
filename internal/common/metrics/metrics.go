// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Story request outcomes.
const (
	OutcomeSuccess           = "success"
	OutcomeMissingInput      = "missing_input"
	OutcomeValidationFailed  = "validation_failed"
	OutcomePromptUnavailable = "prompt_unavailable"
	OutcomeGenerationFailed  = "generation_failed"
)

var (
	StoryRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_requests_total",
			Help: "Total number of story requests by outcome",
		},
		[]string{"outcome"},
	)

	StoryGenerationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "story_generation_duration_seconds",
			Help:    "Duration of generation gateway calls in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 20, 40, 60},
		},
		[]string{"provider"},
	)

	StoryTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "story_tokens_total",
			Help: "Tokens consumed by story generation",
		},
		[]string{"direction"},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "route"},
	)

	TemplateCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "template_cache_lookups_total",
			Help: "Template cache lookups by kind and result",
		},
		[]string{"kind", "result"},
	)

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
)
