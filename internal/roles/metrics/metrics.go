package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks capability checks and grants.
type Metrics struct {
	AuthorizationDenied *prometheus.CounterVec
	CapabilityChanges   *prometheus.CounterVec
}

// New registers role metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthorizationDenied: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_authorization_denied_total",
			Help: "Privileged calls refused because the caller lacked a capability",
		}, []string{"capability"}),
		CapabilityChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_capability_changes_total",
			Help: "Capability grants and revocations that changed state",
		}, []string{"capability", "change"}),
	}
}

func (m *Metrics) IncDenied(capability string) {
	m.AuthorizationDenied.WithLabelValues(capability).Inc()
}

func (m *Metrics) IncChange(capability, change string) {
	m.CapabilityChanges.WithLabelValues(capability, change).Inc()
}
