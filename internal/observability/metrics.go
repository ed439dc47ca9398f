package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// EdgeMutations counts edge writes by relation, operation and outcome.
	EdgeMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_edge_mutations_total",
		Help: "Edge store mutations by kind, operation and result",
	}, []string{"kind", "operation", "result"})

	// CounterAdjustments counts denormalized counter increments and decrements.
	CounterAdjustments = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_counter_adjustments_total",
		Help: "Denormalized counter adjustments by counter and direction",
	}, []string{"counter", "direction"})

	// FeedComposeLatency records time spent composing a feed.
	FeedComposeLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_feed_compose_seconds",
		Help:    "Feed composition latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"feed"})

	// FeedItems records how many items a composed feed returned.
	FeedItems = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warbler_feed_items",
		Help:    "Number of items returned per composed feed",
		Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 200, 500},
	}, []string{"feed"})

	// ReconcileDrift counts posts whose counters disagreed with their edges.
	ReconcileDrift = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_reconcile_drift_total",
		Help: "Posts corrected by counter reconciliation",
	}, []string{"source"})

	// EventsPublished counts activity events by type and result.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "warbler_events_published_total",
		Help: "Activity events published by type and result",
	}, []string{"type", "result"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

// TrackFeed returns a function that records feed latency and size when called.
func TrackFeed(feed string) func(items int) {
	start := time.Now()
	return func(items int) {
		FeedComposeLatency.WithLabelValues(feed).Observe(time.Since(start).Seconds())
		FeedItems.WithLabelValues(feed).Observe(float64(items))
	}
}

// RecordEdgeMutation increments the edge mutation counter.
func RecordEdgeMutation(kind, operation, result string) {
	EdgeMutations.WithLabelValues(kind, operation, result).Inc()
}

// RecordCounterAdjustment increments the counter adjustment metric.
func RecordCounterAdjustment(counter string, delta int) {
	direction := "increment"
	if delta < 0 {
		direction = "decrement"
	}
	CounterAdjustments.WithLabelValues(counter, direction).Inc()
}
