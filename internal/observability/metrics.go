package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// KVOperationLatency records backend latency by operation and backend.
	KVOperationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "threadx_kv_operation_latency_seconds",
		Help:    "Key-value backend latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "backend"})

	// KVErrors counts backend failures by operation.
	KVErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadx_kv_errors_total",
		Help: "Total number of key-value backend errors",
	}, []string{"operation", "backend"})

	// CorruptEntries counts stored values that failed to decode, by key family.
	CorruptEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadx_kv_corrupt_entries_total",
		Help: "Total number of malformed stored values replaced by their fallback",
	}, []string{"family"})

	// AlertsPushed counts alerts written to recipient feeds by type.
	AlertsPushed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadx_alerts_pushed_total",
		Help: "Total number of alerts pushed",
	}, []string{"type"})

	// ThreadsCreated counts new threads by visibility.
	ThreadsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadx_threads_created_total",
		Help: "Total number of threads created",
	}, []string{"visibility"})

	// ChangeEventsTotal counts change events by stage (published, consumed, broadcast).
	ChangeEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "threadx_change_events_total",
		Help: "Total number of storage change events",
	}, []string{"stage"})

	// WebSocketConnections is the gauge of connected change subscribers.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "threadx_websocket_connections",
		Help: "Number of connected change subscribers",
	})

	// WebSocketDrops counts events dropped because a subscriber was too slow.
	WebSocketDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "threadx_websocket_backpressure_drops_total",
		Help: "Total number of change events dropped due to backpressure",
	})
)

// TrackKV returns a function that records the latency of one backend call,
// and counts it as failed when err points to a non-nil error.
func TrackKV(operation, backend string) func(err *error) {
	start := time.Now()
	return func(err *error) {
		KVOperationLatency.WithLabelValues(operation, backend).Observe(time.Since(start).Seconds())
		if err != nil && *err != nil {
			KVErrors.WithLabelValues(operation, backend).Inc()
		}
	}
}
