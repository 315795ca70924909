package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	reg           *prometheus.Registry
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	invalidations *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		transitions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "izzycare_appointment_transitions_total",
			Help: "Appointment writes by type and result.",
		}, []string{"type", "result"}),
		notifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "izzycare_notifications_total",
			Help: "Patient notifications by result.",
		}, []string{"result"}),
		invalidations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "izzycare_view_invalidations_total",
			Help: "View invalidations by view and result.",
		}, []string{"view", "result"}),
	}
}

func (m *Metrics) ObserveTransition(kind, result string) {
	m.transitions.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveNotification(result string) {
	m.notifications.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveInvalidation(view, result string) {
	m.invalidations.WithLabelValues(view, result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}
