// Package metrics provides Prometheus metrics for the AdvWell service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TribunalAttemptsTotal tracks registry lookups by tribunal and outcome
	TribunalAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "datajud",
			Name:      "attempts_total",
			Help:      "Total number of tribunal lookups by outcome",
		},
		[]string{"tribunal", "outcome"},
	)

	// TribunalAttemptDuration tracks tribunal lookup duration
	TribunalAttemptDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advwell",
			Subsystem: "datajud",
			Name:      "attempt_duration_seconds",
			Help:      "Duration of tribunal lookups in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15, 30},
		},
		[]string{"tribunal"},
	)

	// CaseSyncsTotal tracks case synchronizations by trigger and result
	CaseSyncsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "casesync",
			Name:      "syncs_total",
			Help:      "Total number of case synchronizations by trigger and result",
		},
		[]string{"trigger", "result"},
	)

	// CaseSyncDuration tracks the end to end duration of a case synchronization
	CaseSyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advwell",
			Subsystem: "casesync",
			Name:      "sync_duration_seconds",
			Help:      "Duration of case synchronizations in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"trigger"},
	)

	// MovementsReplaced tracks movement rows written by synchronizations
	MovementsReplaced = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "casesync",
			Name:      "movements_replaced_total",
			Help:      "Total number of movement rows written during reconciliation",
		},
	)

	// SweepRunsTotal tracks scheduled sweep runs
	SweepRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "sweep",
			Name:      "runs_total",
			Help:      "Total number of scheduled sweeps by status",
		},
		[]string{"status"},
	)

	// SweepCasesTotal tracks per-case sweep results
	SweepCasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "sweep",
			Name:      "cases_total",
			Help:      "Total number of cases processed by the sweep by result",
		},
		[]string{"result"},
	)

	// SweepDuration tracks sweep duration
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "advwell",
			Subsystem: "sweep",
			Name:      "duration_seconds",
			Help:      "Duration of scheduled sweeps in seconds",
			Buckets:   []float64{1, 10, 30, 60, 300, 600, 1800, 3600},
		},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "host", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advwell",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "host"},
	)

	// RateLimitWaitTime tracks time spent waiting on tribunal rate limits
	RateLimitWaitTime = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "advwell",
			Subsystem: "ratelimit",
			Name:      "wait_seconds",
			Help:      "Time spent waiting for rate limits in seconds",
			Buckets:   []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"key"},
	)

	// KafkaMessagesPublished tracks Kafka messages published
	KafkaMessagesPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "advwell",
			Subsystem: "kafka",
			Name:      "messages_published_total",
			Help:      "Total number of messages published to Kafka",
		},
		[]string{"topic", "status"},
	)
)
