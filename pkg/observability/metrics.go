// Package observability implements the engine's turn-level observer with
// Prometheus counters.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts turn-level events. It satisfies the engine's Observer
// interface; counters are safe for concurrent use.
type Metrics struct {
	registry *prometheus.Registry

	turns        *prometheus.CounterVec
	intentMisses prometheus.Counter
	apiFailures  *prometheus.CounterVec
	expiries     prometheus.Counter
}

// NewMetrics creates and registers the counters on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_turns_total",
				Help: "Total conversation turns handled, by intent",
			},
			[]string{"intent"},
		),
		intentMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_intent_misses_total",
				Help: "Total inbound messages that matched no intent",
			},
		),
		apiFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_api_failures_total",
				Help: "Total failed outbound API calls, by intent and step",
			},
			[]string{"intent", "step"},
		),
		expiries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "parley_session_expiries_total",
				Help: "Total sessions expired by a CSRF signal",
			},
		),
	}
	m.registry.MustRegister(m.turns, m.intentMisses, m.apiFailures, m.expiries)
	return m
}

// TurnHandled counts a handled turn for an intent.
func (m *Metrics) TurnHandled(intent string) {
	m.turns.WithLabelValues(intent).Inc()
}

// IntentMissed counts a message no intent matched.
func (m *Metrics) IntentMissed() {
	m.intentMisses.Inc()
}

// APICallFailed counts a failed outbound call.
func (m *Metrics) APICallFailed(intent, step string) {
	m.apiFailures.WithLabelValues(intent, step).Inc()
}

// SessionExpired counts a CSRF-forced logout.
func (m *Metrics) SessionExpired() {
	m.expiries.Inc()
}

// Handler exposes the counters for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
