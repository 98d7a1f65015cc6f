package shardspec

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the applier's Prometheus collectors.
type Metrics struct {
	leaves   *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when it is
// not nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		leaves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shardspec",
			Name:      "constrained_leaves_total",
			Help:      "Leaves handed to the sharding primitive, by partition and leaf kind.",
		}, []string{"partition", "kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shardspec",
			Name:      "apply_failures_total",
			Help:      "Failed Apply calls, by partition and issue code.",
		}, []string{"partition", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "shardspec",
			Name:      "apply_duration_seconds",
			Help:      "Time spent in Apply, including the primitive calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"partition"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.leaves, m.failures, m.duration} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) observeLeaf(partition string, kind LeafKind) {
	if m == nil {
		return
	}
	m.leaves.WithLabelValues(partition, kind.String()).Inc()
}

func (m *Metrics) observeFailure(partition string, iss Issues) {
	if m == nil {
		return
	}
	code := CodeConstraintFailed
	if len(iss) > 0 {
		code = iss[0].Code
	}
	m.failures.WithLabelValues(partition, code).Inc()
}

func (m *Metrics) observeDuration(partition string, seconds float64) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(partition).Observe(seconds)
}
