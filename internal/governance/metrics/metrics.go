package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the threshold operation engine.
type Metrics struct {
	OperationsProposed *prometheus.CounterVec
	Signatures         prometheus.Counter
	OperationsExecuted *prometheus.CounterVec
	TimeToQuorum       *prometheus.HistogramVec
	RequiredSignatures prometheus.Gauge
	DispatchFailures   *prometheus.CounterVec
}

// New registers governance metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		OperationsProposed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_governance_operations_proposed_total",
			Help: "Operations proposed, by kind",
		}, []string{"kind"}),
		Signatures: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_governance_signatures_total",
			Help: "Signatures recorded, including the proposer's",
		}),
		OperationsExecuted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_governance_operations_executed_total",
			Help: "Operations that reached quorum and executed, by kind",
		}, []string{"kind"}),
		TimeToQuorum: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_governance_time_to_quorum_seconds",
			Help:    "Time from proposal to execution",
			Buckets: []float64{0, 1, 60, 300, 900, 3600, 14400, 86400, 604800},
		}, []string{"kind"}),
		RequiredSignatures: f.NewGauge(prometheus.GaugeOpts{
			Name: "kycgate_governance_required_signatures",
			Help: "Current quorum",
		}),
		DispatchFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_governance_dispatch_failures_total",
			Help: "Quorum reached but the ledger refused the action, by error code",
		}, []string{"code"}),
	}
}

func (m *Metrics) IncProposed(kind string) {
	m.OperationsProposed.WithLabelValues(kind).Inc()
}

func (m *Metrics) IncSigned() {
	m.Signatures.Inc()
}

// ObserveExecuted counts an execution and how long quorum took.
func (m *Metrics) ObserveExecuted(kind string, createdAt, executedAt time.Time) {
	m.OperationsExecuted.WithLabelValues(kind).Inc()
	m.TimeToQuorum.WithLabelValues(kind).Observe(executedAt.Sub(createdAt).Seconds())
}

func (m *Metrics) SetRequired(n int) {
	m.RequiredSignatures.Set(float64(n))
}

func (m *Metrics) IncDispatchFailure(code string) {
	m.DispatchFailures.WithLabelValues(code).Inc()
}
