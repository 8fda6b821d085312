package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the credential ledger module.
type Metrics struct {
	CredentialsIssued  prometheus.Counter
	CredentialsRevoked prometheus.Counter
	MintDuration       prometheus.Histogram
	RevokeDuration     prometheus.Histogram
}

// New creates a Metrics instance with all ledger metrics registered.
func New() *Metrics {
	return &Metrics{
		CredentialsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_credentials_issued_total",
			Help: "Total number of credentials minted",
		}),
		CredentialsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_credentials_revoked_total",
			Help: "Total number of credentials revoked",
		}),
		MintDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_mint_duration_seconds",
			Help:    "Duration of mint operations including the registry check",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		RevokeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_revoke_duration_seconds",
			Help:    "Duration of revoke operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveMint records one mint and its duration.
func (m *Metrics) ObserveMint(start time.Time) {
	m.CredentialsIssued.Inc()
	m.MintDuration.Observe(time.Since(start).Seconds())
}

// ObserveRevoke records one revoke and its duration.
func (m *Metrics) ObserveRevoke(start time.Time) {
	m.CredentialsRevoked.Inc()
	m.RevokeDuration.Observe(time.Since(start).Seconds())
}
