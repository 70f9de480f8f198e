package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/telepoker/telepoker/internal/game"
	"github.com/telepoker/telepoker/internal/lobby"
	"github.com/telepoker/telepoker/internal/tournament"
)

// Metrics bundles the server's Prometheus instruments on a private
// registry so multiple servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry

	ClientsConnected prometheus.Gauge
	HandsCompleted   prometheus.Counter
	ActionsReceived  *prometheus.CounterVec
}

// NewMetrics registers the counter and gauge instruments on a fresh
// registry. Live-count gauges over the game collaborators are added later
// via Track, once those collaborators exist.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ClientsConnected: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "telepoker",
			Name:      "connected_clients",
			Help:      "WebSocket connections currently open.",
		}),
		HandsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "telepoker",
			Name:      "hands_completed_total",
			Help:      "Poker hands played to completion.",
		}),
		ActionsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "telepoker",
			Name:      "actions_received_total",
			Help:      "Player actions received over WebSocket.",
		}, []string{"command"}),
	}
}

// Track registers gauges that read live counts from the given sources.
// Call at most once; nil sources are skipped.
func (m *Metrics) Track(tables *game.Manager, lobbies *lobby.Registry, tournaments *tournament.Controller) {
	factory := promauto.With(m.registry)

	if tables != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "telepoker",
			Name:      "open_tables",
			Help:      "Tables currently live.",
		}, func() float64 { return float64(tables.Count()) })
	}
	if lobbies != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "telepoker",
			Name:      "open_lobbies",
			Help:      "Private lobbies currently tracked.",
		}, func() float64 { return float64(lobbies.Count()) })
	}
	if tournaments != nil {
		factory.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: "telepoker",
			Name:      "tournaments",
			Help:      "Tournaments known to the controller, finished included.",
		}, func() float64 { return float64(tournaments.Count()) })
	}
}

// Handler serves the metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
