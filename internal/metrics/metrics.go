// Package metrics exposes Prometheus collectors for the action ledger and
// its lock primitives. A nil *Ledger is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/heartmarshall/modix-backend/internal/domain"
)

const namespace = "modix"

// Ledger holds the collectors shared by every repository.
type Ledger struct {
	actions  *prometheus.CounterVec
	lockWait *prometheus.HistogramVec
}

// NewLedger creates the collectors and registers them with reg.
func NewLedger(reg prometheus.Registerer) (*Ledger, error) {
	m := &Ledger{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "actions_total",
			Help:      "Committed ledger actions by family and type.",
		}, []string{"family", "type"}),
		lockWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "lock_wait_seconds",
			Help:      "Time spent waiting for a repository lock.",
			Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
		}, []string{"repository", "kind"}),
	}

	for _, c := range []prometheus.Collector{m.actions, m.lockWait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// ActionCommitted counts one committed action.
func (m *Ledger) ActionCommitted(family domain.ActionFamily, actionType string) {
	if m == nil {
		return
	}
	m.actions.WithLabelValues(family.String(), actionType).Inc()
}

// ObserveLockWait records how long a caller waited for a lock.
// kind is "guard" or "role:<name>".
func (m *Ledger) ObserveLockWait(repository, kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.lockWait.WithLabelValues(repository, kind).Observe(d.Seconds())
}
