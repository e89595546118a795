// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Batch deduplication cache
	DedupLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_dedup_lookups_total",
			Help: "Deduplication cache lookups by result (hit, miss)",
		},
		[]string{"cache", "result"},
	)

	DedupHitRate = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "charsync_dedup_hit_rate",
			Help: "Hit rate of the most recent synchronization run's deduplication cache",
		},
		[]string{"cache"},
	)

	// Upstream calls
	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_upstream_requests_total",
			Help: "Upstream API requests by result",
		},
		[]string{"upstream", "result"},
	)

	UpstreamRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charsync_upstream_request_duration_seconds",
			Help:    "Duration of upstream API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"upstream"},
	)

	ThrottleRejections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_throttle_rejections_total",
			Help: "Calls rejected because no throttle permit was available within the wait bound",
		},
		[]string{"upstream"},
	)

	RetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_retry_attempts_total",
			Help: "Retries performed after a transient failure",
		},
		[]string{"operation"},
	)

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "charsync_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Synchronization
	SyncOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_sync_outcomes_total",
			Help: "Per-entity synchronization outcomes",
		},
		[]string{"game", "outcome"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "charsync_sync_duration_seconds",
			Help:    "Duration of a synchronization batch",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"game"},
	)

	SnapshotsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_snapshots_inserted_total",
			Help: "Snapshots appended to the snapshot store",
		},
		[]string{"game"},
	)

	// Subscriptions
	SubscriptionVersion = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "charsync_subscription_version",
			Help: "Last committed event version per subscription",
		},
		[]string{"subscription"},
	)

	SubscriptionFailed = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "charsync_subscription_failed",
			Help: "1 when the subscription is halted on a failing event",
		},
		[]string{"subscription"},
	)

	SubscriptionEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "charsync_subscription_events_total",
			Help: "Events handled by a subscription by result",
		},
		[]string{"subscription", "result"},
	)
)
