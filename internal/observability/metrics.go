package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/riskibarqy/chess-wager/internal/domain/user"
)

// Metrics holds the service counters on a private registry. It satisfies
// usecase.Metrics.
type Metrics struct {
	registry       *prometheus.Registry
	settlements    *prometheus.CounterVec
	expirations    prometheus.Counter
	reconcileErrs  *prometheus.CounterVec
	rewardsGranted *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		registry: registry,
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wager_settlements_total",
			Help: "Wagers moved to a terminal settled status, by outcome.",
		}, []string{"outcome"}),
		expirations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "wager_expirations_total",
			Help: "Pending wagers expired and refunded.",
		}),
		reconcileErrs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reconcile_errors_total",
			Help: "Per-item failures inside reconciliation sweeps, by job.",
		}, []string{"job"}),
		rewardsGranted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "season_rewards_granted_total",
			Help: "Season reward payouts credited, by currency.",
		}, []string{"currency"}),
	}
	registry.MustRegister(m.settlements, m.expirations, m.reconcileErrs, m.rewardsGranted)
	return m
}

func (m *Metrics) WagerSettled(outcome string) {
	m.settlements.WithLabelValues(outcome).Inc()
}

func (m *Metrics) WagerExpired() {
	m.expirations.Inc()
}

func (m *Metrics) ReconcileError(job string) {
	m.reconcileErrs.WithLabelValues(job).Inc()
}

func (m *Metrics) SeasonRewardGranted(currency user.Currency) {
	m.rewardsGranted.WithLabelValues(string(currency)).Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}
