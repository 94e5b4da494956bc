// Package metrics defines the Prometheus instruments exported at /metrics.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	SnapshotsCollected = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "procsentry_snapshots_collected_total",
			Help: "Process snapshots appended to the history window",
		},
	)

	ProcessesObserved = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "procsentry_processes_observed",
			Help: "Process count in the most recent snapshot",
		},
	)

	TrainingRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsentry_training_runs_total",
			Help: "Model training attempts by result",
		},
		[]string{"result"},
	)

	TrainingDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "procsentry_training_duration_seconds",
			Help:    "Wall time of successful training runs",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	AnomaliesFlagged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "procsentry_anomalies_flagged_total",
			Help: "Processes flagged above the reconstruction threshold",
		},
	)

	DetectionFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "procsentry_detection_failures_total",
			Help: "Detection calls that failed on the scoring path",
		},
	)
)

// MustRegister registers all instruments with the default registry.
func MustRegister() {
	prometheus.MustRegister(
		SnapshotsCollected,
		ProcessesObserved,
		TrainingRuns,
		TrainingDuration,
		AnomaliesFlagged,
		DetectionFailures,
	)
}
