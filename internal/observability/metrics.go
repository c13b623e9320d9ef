// Package observability exposes account metrics and health probes on a
// listener separate from the public site.
package observability

import (
	"time"

	"github.com/Ryan-Har/truckbook/pkg/credential"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "truckbook"

// Metrics records credential outcomes. It satisfies credential.Observer.
type Metrics struct {
	Registrations   *prometheus.CounterVec
	Authentications *prometheus.CounterVec
	Logouts         *prometheus.CounterVec
	HashDuration    prometheus.Histogram
}

var _ credential.Observer = (*Metrics)(nil)

// NewMetrics creates the account metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registrations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "registrations_total",
				Help:      "Total number of signup attempts by outcome",
			},
			[]string{"outcome"},
		),
		Authentications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "authentications_total",
				Help:      "Total number of login attempts by outcome",
			},
			[]string{"outcome"},
		),
		Logouts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "logouts_total",
				Help:      "Total number of logouts by outcome",
			},
			[]string{"outcome"},
		),
		HashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "password_hash_duration_seconds",
			Help:      "Time spent hashing or verifying a password",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2},
		}),
	}

	reg.MustRegister(m.Registrations, m.Authentications, m.Logouts, m.HashDuration)
	return m
}

func (m *Metrics) ObserveRegister(outcome string) {
	m.Registrations.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveAuthenticate(outcome string) {
	m.Authentications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveLogout(outcome string) {
	m.Logouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveHash(d time.Duration) {
	m.HashDuration.Observe(d.Seconds())
}
