// Package metrics exposes Prometheus collectors for connection and
// synchronization activity.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/agentstation/enginelink/pkg/errors"
)

const namespace = "enginelink"

// Metrics holds the collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	connectionState   prometheus.Gauge
	handshakeFailures *prometheus.CounterVec
	syncRuns          *prometheus.CounterVec
	syncDuration      prometheus.Histogram
	categoryFetches   *prometheus.CounterVec
	softFailures      *prometheus.CounterVec
}

// New creates the collectors and registers them with reg. A nil reg
// disables metrics and returns nil.
func New(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		return nil, nil
	}

	m := &Metrics{
		connectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "state",
			Help:      "Connection state (0=disconnected, 1=connecting, 2=connected)",
		}),
		handshakeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "connection",
			Name:      "handshake_failures_total",
			Help:      "Total failed handshakes by failure kind",
		}, []string{"kind"}),
		syncRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total synchronization runs by outcome",
		}, []string{"outcome"}),
		syncDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of synchronization runs",
			Buckets:   prometheus.DefBuckets,
		}),
		categoryFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sync",
			Name:      "category_fetches_total",
			Help:      "Total category fetches by category and outcome",
		}, []string{"category", "outcome"}),
		softFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "invoke",
			Name:      "soft_failures_total",
			Help:      "Total remote calls absorbed as soft failures by kind",
		}, []string{"kind"}),
	}

	for _, c := range []prometheus.Collector{
		m.connectionState,
		m.handshakeFailures,
		m.syncRuns,
		m.syncDuration,
		m.categoryFetches,
		m.softFailures,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// SetConnectionState records the numeric connection state.
func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

// HandshakeFailed counts a failed handshake.
func (m *Metrics) HandshakeFailed(kind errors.Kind) {
	if m == nil {
		return
	}
	m.handshakeFailures.WithLabelValues(kind.String()).Inc()
}

// SyncFinished counts a synchronization run and observes its duration.
func (m *Metrics) SyncFinished(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.syncRuns.WithLabelValues(outcome).Inc()
	m.syncDuration.Observe(d.Seconds())
}

// CategoryFetched counts the outcome of one category fetch.
func (m *Metrics) CategoryFetched(category, outcome string) {
	if m == nil {
		return
	}
	m.categoryFetches.WithLabelValues(category, outcome).Inc()
}

// SoftFailure counts a soft failure. It lets Metrics serve as an
// invoke.Recorder. The operation is not a label to bound cardinality.
func (m *Metrics) SoftFailure(_ string, kind errors.Kind) {
	if m == nil {
		return
	}
	m.softFailures.WithLabelValues(kind.String()).Inc()
}
