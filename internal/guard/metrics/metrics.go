package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts guard decisions.
type Metrics struct {
	Checks *prometheus.CounterVec
}

// New registers guard metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Checks: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_guard_checks_total",
			Help: "Transfer guard outcomes",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncCheck(outcome string) {
	m.Checks.WithLabelValues(outcome).Inc()
}
