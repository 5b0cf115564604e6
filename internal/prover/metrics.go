package prover

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gnolang/vcprove/internal/types"
)

// Metrics counts the work of a proof run. The plain counters are reset at
// the start of every run; the Prometheus collectors are cumulative.
type Metrics struct {
	proofsConsidered atomic.Int64
	backtracks       atomic.Int64

	considered prometheus.Counter
	backtrack  prometheus.Counter
	outcomes   *prometheus.CounterVec
	duration   prometheus.Histogram
}

// NewMetrics creates the collectors and registers them with reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		considered: factory.NewCounter(prometheus.CounterOpts{
			Name: "vcprove_proofs_considered_total",
			Help: "Candidate facts inserted into obligation models",
		}),
		backtrack: factory.NewCounter(prometheus.CounterOpts{
			Name: "vcprove_backtracks_total",
			Help: "Rule selections that produced no new fact",
		}),
		outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vcprove_obligations_total",
			Help: "Finished obligations by status",
		}, []string{"status"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "vcprove_obligation_duration_seconds",
			Help:    "Wall time spent on one obligation",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) Reset() {
	m.proofsConsidered.Store(0)
	m.backtracks.Store(0)
}

func (m *Metrics) ProofsConsidered() int64 {
	return m.proofsConsidered.Load()
}

func (m *Metrics) Backtracks() int64 {
	return m.backtracks.Load()
}

func (m *Metrics) proofConsidered() {
	m.proofsConsidered.Add(1)
	m.considered.Inc()
}

func (m *Metrics) backtracked() {
	m.backtracks.Add(1)
	m.backtrack.Inc()
}

func (m *Metrics) finished(status types.Status, skipped bool, elapsed time.Duration) {
	label := status.String()
	if skipped {
		label = "SKIPPED"
	}
	m.outcomes.WithLabelValues(label).Inc()
	m.duration.Observe(elapsed.Seconds())
}
