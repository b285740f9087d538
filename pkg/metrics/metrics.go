package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "store_op_duration_seconds",
			Help:    "Habit store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"operation", "backend"},
	)

	InsightCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_call_latency_ms",
			Help:    "Insight generator call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"status"},
	)

	HabitsTrackedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "habits_tracked_count",
			Help: "Total number of habit completions recorded",
		},
		[]string{"result"}, // result: tracked, noop
	)

	StreakRepairCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "streak_repair_count",
			Help: "Total number of background streak corrections",
		},
		[]string{"status"}, // status: applied, skipped, failed
	)

	SnapshotDeliveredCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snapshot_delivered_count",
			Help: "Total number of habit snapshots delivered to watchers",
		},
	)
)

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func RecordStoreOpDuration(operation, backend string, duration time.Duration) {
	StoreOpDuration.WithLabelValues(operation, backend).Observe(duration.Seconds())
}

func RecordInsightCallLatency(status string, duration time.Duration) {
	InsightCallLatency.WithLabelValues(status).Observe(float64(duration.Milliseconds()))
}

func IncrementHabitsTracked(result string) {
	HabitsTrackedCount.WithLabelValues(result).Inc()
}

func IncrementStreakRepair(status string) {
	StreakRepairCount.WithLabelValues(status).Inc()
}
