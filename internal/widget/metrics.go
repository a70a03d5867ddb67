package widget

import "github.com/prometheus/client_golang/prometheus"

// Metrics exposes Prometheus collectors for widget instances. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	loads     *prometheus.CounterVec
	edits     prometheus.Counter
	deletes   prometheus.Counter
	instances prometheus.Gauge
}

// NewMetrics builds the collectors and registers them when registerer is not
// nil.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "userboard_widget_loads_total",
			Help: "Upstream record loads by result.",
		}, []string{"result"}),
		edits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userboard_widget_edits_saved_total",
			Help: "Edits committed from the modal.",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "userboard_widget_delete_requests_total",
			Help: "Delete clicks answered with the under-development notice.",
		}),
		instances: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "userboard_widget_instances",
			Help: "Live widget instances.",
		}),
	}
	if registerer != nil {
		registerer.MustRegister(m.loads, m.edits, m.deletes, m.instances)
	}
	return m
}

func (m *Metrics) loadSucceeded() {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("success").Inc()
}

func (m *Metrics) loadFailed() {
	if m == nil {
		return
	}
	m.loads.WithLabelValues("failure").Inc()
}

func (m *Metrics) editSaved() {
	if m == nil {
		return
	}
	m.edits.Inc()
}

func (m *Metrics) deleteRequested() {
	if m == nil {
		return
	}
	m.deletes.Inc()
}

func (m *Metrics) setInstances(n int) {
	if m == nil {
		return
	}
	m.instances.Set(float64(n))
}
