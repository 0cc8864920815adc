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

	WorkerJobsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "worker_jobs_active",
			Help: "Number of active jobs per worker",
		},
		[]string{"task_type"},
	)

	VerdictsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docverify_verdicts_total",
			Help: "Verdicts produced, by outcome and whether the model was used",
		},
		[]string{"verdict", "ai_processed"},
	)

	FeatureExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "docverify_feature_extraction_seconds",
			Help:    "Time spent decoding and measuring one document image",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
	)

	CaseTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docverify_case_transitions_total",
			Help: "Case status transitions",
		},
		[]string{"kind", "from", "to"},
	)

	RegistryLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docverify_registry_lookups_total",
			Help: "Registry lookups by result (hit, miss, error) and source (cache, store)",
		},
		[]string{"result", "source"},
	)

	DownloadsResolved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docverify_downloads_total",
			Help: "Downloads resolved, by the tier that served them",
		},
		[]string{"source"},
	)
)
