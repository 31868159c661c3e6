package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TrackerMetrics holds Prometheus metrics for balance tracking.
// A nil *TrackerMetrics records nothing.
type TrackerMetrics struct {
	ChecksTotal          *prometheus.CounterVec
	UpstreamErrorsTotal  prometheus.Counter
	UpstreamLatency      prometheus.Histogram
	SnapshotsSaved       prometheus.Counter
	SnapshotsTrimmed     prometheus.Counter
	StorageFailuresTotal *prometheus.CounterVec
	InvalidAmountsTotal  prometheus.Counter
}

// NewTrackerMetrics registers tracker metrics with reg
func NewTrackerMetrics(reg prometheus.Registerer) *TrackerMetrics {
	factory := promauto.With(reg)
	return &TrackerMetrics{
		ChecksTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_checks_total",
			Help: "Total number of balance checks by outcome",
		}, []string{"outcome"}),
		UpstreamErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_upstream_errors_total",
			Help: "Total number of failed accounts API requests",
		}),
		UpstreamLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tracker_upstream_latency_seconds",
			Help:    "Accounts API request duration",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		SnapshotsSaved: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshots_saved_total",
			Help: "Total number of balance snapshots persisted",
		}),
		SnapshotsTrimmed: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_snapshots_trimmed_total",
			Help: "Total number of snapshots dropped by the retention window",
		}),
		StorageFailuresTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tracker_storage_failures_total",
			Help: "Total number of swallowed history storage failures",
		}, []string{"op"}),
		InvalidAmountsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "tracker_invalid_amounts_total",
			Help: "Total number of unparseable amounts counted as zero",
		}),
	}
}

// ObserveCheck counts a finished check
func (m *TrackerMetrics) ObserveCheck(outcome string) {
	if m == nil {
		return
	}
	m.ChecksTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one accounts API request
func (m *TrackerMetrics) ObserveUpstream(seconds float64, failed bool) {
	if m == nil {
		return
	}
	m.UpstreamLatency.Observe(seconds)
	if failed {
		m.UpstreamErrorsTotal.Inc()
	}
}

// ObserveSave records a persisted snapshot and how many old ones were dropped
func (m *TrackerMetrics) ObserveSave(dropped int, invalidAmounts int) {
	if m == nil {
		return
	}
	m.SnapshotsSaved.Inc()
	m.SnapshotsTrimmed.Add(float64(dropped))
	m.InvalidAmountsTotal.Add(float64(invalidAmounts))
}

// ObserveStorageFailure counts a swallowed storage error
func (m *TrackerMetrics) ObserveStorageFailure(op string) {
	if m == nil {
		return
	}
	m.StorageFailuresTotal.WithLabelValues(op).Inc()
}
