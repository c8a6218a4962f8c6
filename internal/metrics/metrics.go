// Package metrics holds the Prometheus instrumentation for the delivery
// pipeline, grounded in internal/escrow/metrics.go's promauto-registered
// struct-of-vectors pattern from the teacher repo.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds every Prometheus metric emitted by the delivery pipeline.
type Metrics struct {
	DeliveryAttemptsTotal  *prometheus.CounterVec
	DeliveryAttemptLatency *prometheus.HistogramVec

	CacheHitsTotal   prometheus.Counter
	CacheMissesTotal prometheus.Counter
	CacheErrorsTotal prometheus.Counter

	QueueDepth       *prometheus.GaugeVec
	QueueEnqueueFail *prometheus.CounterVec

	RetentionRowsDeletedTotal prometheus.Counter
	RetentionSweepFailures    prometheus.Counter
}

// New creates and registers every metric. Call once per process.
func New() *Metrics {
	return &Metrics{
		DeliveryAttemptsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_delivery_attempts_total",
				Help: "Total number of delivery attempts, labeled by outcome",
			},
			[]string{"outcome"}, // Success, Failed Attempt, Failure
		),
		DeliveryAttemptLatency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "webhooks_delivery_attempt_duration_seconds",
				Help:    "Wall-clock duration of a single outbound delivery attempt",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"outcome"},
		),
		CacheHitsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_subscription_cache_hits_total",
			Help: "Subscription cache reads served without touching the durable store",
		}),
		CacheMissesTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_subscription_cache_misses_total",
			Help: "Subscription cache reads that fell through to the durable store",
		}),
		CacheErrorsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_subscription_cache_errors_total",
			Help: "Cache operation failures swallowed and routed to the durable store",
		}),
		QueueDepth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "webhooks_queue_depth",
				Help: "Approximate number of jobs waiting in a queue",
			},
			[]string{"queue", "state"}, // state: ready, delayed
		),
		QueueEnqueueFail: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "webhooks_queue_enqueue_failures_total",
				Help: "Failed enqueue/enqueue_in calls, labeled by queue backend",
			},
			[]string{"backend"},
		),
		RetentionRowsDeletedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_retention_rows_deleted_total",
			Help: "Total delivery_logs rows deleted by the retention sweeper",
		}),
		RetentionSweepFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "webhooks_retention_sweep_failures_total",
			Help: "Retention sweep passes that errored and rolled back",
		}),
	}
}

// RecordAttempt records one completed delivery attempt.
func (m *Metrics) RecordAttempt(outcome string, seconds float64) {
	m.DeliveryAttemptsTotal.WithLabelValues(outcome).Inc()
	m.DeliveryAttemptLatency.WithLabelValues(outcome).Observe(seconds)
}
