package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AttemptsTotal tracks transport invocations per method.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpkit_attempts_total",
			Help: "Total number of transport attempts",
		},
		[]string{"method"},
	)

	// RetriesTotal tracks resubmissions per method.
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpkit_retries_total",
			Help: "Total number of retried attempts",
		},
		[]string{"method"},
	)

	// FailuresTotal tracks failed attempts per method and failure label.
	FailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpkit_failures_total",
			Help: "Total number of failed attempts",
		},
		[]string{"method", "failure"},
	)

	// AttemptLatency tracks per-attempt latency.
	AttemptLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpkit_attempt_duration_seconds",
			Help:    "Transport attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)
