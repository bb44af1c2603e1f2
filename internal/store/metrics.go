package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/erauner12/toolbridge-resources/internal/resource"
)

// Metrics exposes dispatch counters for one or more stores
type Metrics struct {
	actions   *prometheus.CounterVec
	resources *prometheus.GaugeVec
}

// NewMetrics creates the store collectors and registers them with reg.
// A nil reg leaves them unregistered, which is what tests want.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "resources",
			Name:      "actions_total",
			Help:      "Actions dispatched to a resource store, by kind and outcome.",
		}, []string{"store", "kind", "outcome"}),
		resources: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "resources",
			Name:      "count",
			Help:      "Resources currently held by a resource store.",
		}, []string{"store"}),
	}
	if reg != nil {
		reg.MustRegister(m.actions, m.resources)
	}
	return m
}

func (m *Metrics) observe(store string, kind resource.Kind, err error, s resource.State) {
	if m == nil {
		return
	}
	outcome := "applied"
	if err != nil {
		outcome = "rejected"
	}
	m.actions.WithLabelValues(store, string(kind), outcome).Inc()
	m.resources.WithLabelValues(store).Set(float64(len(s.Resources)))
}
