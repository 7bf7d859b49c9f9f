package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Session metrics (§4.8).
	SessionInvocationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexgraph_session_invocations_total",
			Help: "Total Eval invocations by procedure id and outcome.",
		},
		[]string{"procedure_id", "outcome"},
	)

	SessionRetriesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexgraph_session_retries_total",
			Help: "Total procedure retry attempts by procedure id.",
		},
		[]string{"procedure_id"},
	)

	ProcedureLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flexgraph_procedure_duration_seconds",
			Help:    "Procedure invocation duration in seconds, bucketed per procedure id.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"procedure_id"},
	)

	// WAL metrics (§4.5).
	WALFlushDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flexgraph_wal_flush_duration_seconds",
			Help:    "Time to append and fsync one WAL record.",
			Buckets: prometheus.DefBuckets,
		},
	)

	WALBytesWrittenTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flexgraph_wal_bytes_written_total",
			Help: "Total bytes appended to the WAL across all sessions.",
		},
	)

	WALRecordsReplayedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexgraph_wal_records_replayed_total",
			Help: "Total WAL records replayed on restart, by kind.",
		},
		[]string{"kind"},
	)

	// Fragment / version-manager metrics (§4.4, §4.5).
	AdjacencyGrowthTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexgraph_adjacency_growth_total",
			Help: "Total adjacency slab reallocations, by triplet.",
		},
		[]string{"triplet"},
	)

	OutstandingReadTimestamps = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flexgraph_outstanding_read_timestamps",
			Help: "Number of read transactions with a registered, unreleased timestamp.",
		},
	)

	CompactionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flexgraph_compactions_total",
			Help: "Total compact-transaction attempts, by outcome (committed, aborted_too_soon).",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(
		SessionInvocationsTotal,
		SessionRetriesTotal,
		ProcedureLatency,
		WALFlushDuration,
		WALBytesWrittenTotal,
		WALRecordsReplayedTotal,
		AdjacencyGrowthTotal,
		OutstandingReadTimestamps,
		CompactionsTotal,
	)
}

// Handler returns the Prometheus HTTP handler for an embedding process to
// mount at its own metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ObserveDuration records the duration to a histogram.
func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

// ObserveDurationVec records the duration to a histogram vec with labels.
func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

// Duration returns the elapsed time since the timer started.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
