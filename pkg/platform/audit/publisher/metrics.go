package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit delivery.
type Metrics struct {
	Published    *prometheus.CounterVec
	SinkFailures *prometheus.CounterVec
	SinkDropped  *prometheus.CounterVec
	BufferFull   prometheus.Counter
	BreakerState *prometheus.GaugeVec
}

// NewMetrics registers audit delivery metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_audit_events_published_total",
			Help: "Total number of audit events persisted, by action",
		}, []string{"action"}),
		SinkFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_audit_sink_failures_total",
			Help: "Total number of failed deliveries to a downstream sink",
		}, []string{"sink"}),
		SinkDropped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_audit_sink_dropped_total",
			Help: "Total number of events not delivered because the sink circuit was open",
		}, []string{"sink"}),
		BufferFull: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_audit_buffer_full_total",
			Help: "Total number of events rejected because the async buffer was full",
		}),
		BreakerState: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "kycgate_audit_sink_circuit_open",
			Help: "Sink circuit breaker state (0 closed, 1 open, 2 probing)",
		}, []string{"sink"}),
	}
}
