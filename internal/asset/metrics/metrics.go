package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks asset movements.
type Metrics struct {
	Transfers      *prometheus.CounterVec
	TransferVolume prometheus.Counter
	Burned         prometheus.Counter
	AssetsCreated  prometheus.Counter
}

// New registers asset metrics on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Transfers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "kycgate_asset_transfers_total",
			Help: "Transfer attempts by outcome",
		}, []string{"outcome"}),
		TransferVolume: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_asset_transfer_volume_total",
			Help: "Units moved by successful transfers",
		}),
		Burned: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_asset_burned_total",
			Help: "Units burned",
		}),
		AssetsCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "kycgate_assets_created_total",
			Help: "Guarded assets created by the registry",
		}),
	}
}

func (m *Metrics) ObserveTransfer(outcome string, amount uint64) {
	m.Transfers.WithLabelValues(outcome).Inc()
	if outcome == "settled" {
		m.TransferVolume.Add(float64(amount))
	}
}

func (m *Metrics) AddBurned(amount uint64) {
	m.Burned.Add(float64(amount))
}

func (m *Metrics) IncCreated() {
	m.AssetsCreated.Inc()
}
