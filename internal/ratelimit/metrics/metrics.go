package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Rejected     *prometheus.CounterVec
	CheckFailure prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Rejected: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_rejected_total",
			Help: "Requests refused by the rate limiter",
		}, []string{"class"}),
		CheckFailure: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "kycgate_ratelimit_check_failures_total",
			Help: "Limiter checks that errored and were let through",
		}),
	}
}

func (m *Metrics) IncRejected(class string) {
	m.Rejected.WithLabelValues(class).Inc()
}

func (m *Metrics) IncCheckFailure() {
	m.CheckFailure.Inc()
}
