package inventory

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the inventory collectors. A nil *Metrics records nothing.
type Metrics struct {
	items            prometheus.Gauge
	groups           prometheus.Gauge
	persistFailures  prometheus.Counter
	validationErrors *prometheus.CounterVec
}

// NewMetrics registers the inventory collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		items: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_items",
			Help: "Hardware items currently in the inventory",
		}),
		groups: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "inventory_groups",
			Help: "Name/brand/model groups currently in the inventory",
		}),
		persistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_persist_failures_total",
			Help: "Failed writes of the inventory snapshot to storage",
		}),
		validationErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "inventory_validation_errors_total",
				Help: "Rejected saves by offending field",
			},
			[]string{"field"},
		),
	}
	reg.MustRegister(m.items, m.groups, m.persistFailures, m.validationErrors)
	return m
}

func (m *Metrics) observeSize(groups, items int) {
	if m == nil {
		return
	}
	m.groups.Set(float64(groups))
	m.items.Set(float64(items))
}

func (m *Metrics) persistFailed() {
	if m == nil {
		return
	}
	m.persistFailures.Inc()
}

func (m *Metrics) validationFailed(field string) {
	if m == nil {
		return
	}
	m.validationErrors.WithLabelValues(field).Inc()
}
