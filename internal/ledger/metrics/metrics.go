package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the verification ledger.
type Metrics struct {
	StateChanges    *prometheus.CounterVec
	BatchVerified   prometheus.Histogram
	CommandDuration *prometheus.HistogramVec
}

// New registers ledger metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		StateChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_ledger_state_changes_total",
			Help: "Verification flag flips, by direction and path (direct or operation)",
		}, []string{"change", "path"}),
		BatchVerified: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "kycgate_ledger_batch_verified",
			Help:    "Identities actually verified per batch call",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		CommandDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "kycgate_ledger_command_duration_seconds",
			Help:    "Duration of ledger commands",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"command"}),
	}
}

func (m *Metrics) IncChange(change, path string) {
	m.StateChanges.WithLabelValues(change, path).Inc()
}

func (m *Metrics) ObserveBatch(n int) {
	m.BatchVerified.Observe(float64(n))
}

// ObserveCommand records a command's duration. Call with time.Now() at the start.
func (m *Metrics) ObserveCommand(command string, start time.Time) {
	m.CommandDuration.WithLabelValues(command).Observe(time.Since(start).Seconds())
}
