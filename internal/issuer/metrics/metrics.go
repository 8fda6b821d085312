package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the issuer registry module.
type Metrics struct {
	IssuersAdded          prometheus.Counter
	IssuersRemoved        prometheus.Counter
	AuthorizationChecks   prometheus.Counter
	AuthorizationDuration prometheus.Histogram
}

// New creates a Metrics instance with all registry metrics registered.
func New() *Metrics {
	return &Metrics{
		IssuersAdded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_issuers_added_total",
			Help: "Total number of issuer authorizations granted",
		}),
		IssuersRemoved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_issuers_removed_total",
			Help: "Total number of issuer authorizations revoked",
		}),
		AuthorizationChecks: promauto.NewCounter(prometheus.CounterOpts{
			Name: "attestor_issuer_authorization_checks_total",
			Help: "Total number of issuer authorization lookups",
		}),
		AuthorizationDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "attestor_issuer_authorization_check_duration_seconds",
			Help:    "Duration of issuer authorization lookups (mint critical path)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveAuthorizationCheck records one lookup and its duration.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveAuthorizationCheck(start time.Time) {
	m.AuthorizationChecks.Inc()
	m.AuthorizationDuration.Observe(time.Since(start).Seconds())
}
