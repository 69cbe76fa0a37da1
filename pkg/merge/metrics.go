package merge

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics instruments the operator. Pass an instance through Options to
// enable it; a nil Metrics disables instrumentation entirely. One Metrics may
// be shared by every session of a merge stream.
type Metrics struct {
	// BatchesEmitted counts changeset batches delivered to the merged output.
	BatchesEmitted prometheus.Counter
	// Retractions counts synthesized retraction batches.
	Retractions prometheus.Counter
	// TrackedParents gauges the number of live tracked-parent records.
	TrackedParents prometheus.Gauge
	// Failures counts sessions terminated by an upstream error.
	Failures prometheus.Counter
}

// NewMetrics creates the operator metric set.
func NewMetrics() *Metrics {
	return &Metrics{
		BatchesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "changeflow",
			Subsystem: "merge",
			Name:      "batches_emitted_total",
			Help:      "Number of changeset batches emitted to the merged output.",
		}),
		Retractions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "changeflow",
			Subsystem: "merge",
			Name:      "retraction_batches_total",
			Help:      "Number of synthesized retraction batches.",
		}),
		TrackedParents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "changeflow",
			Subsystem: "merge",
			Name:      "tracked_parents",
			Help:      "Number of live tracked-parent records.",
		}),
		Failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "changeflow",
			Subsystem: "merge",
			Name:      "failures_total",
			Help:      "Number of merge sessions terminated by an upstream error.",
		}),
	}
}

// Register registers every metric of the set on reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.BatchesEmitted, m.Retractions, m.TrackedParents, m.Failures} {
		if err := reg.Register(c); err != nil {
			return fmt.Errorf("registering merge metrics: %w", err)
		}
	}
	return nil
}
