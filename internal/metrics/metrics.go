package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server-side counters.
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequests   *prometheus.CounterVec
	Logins         *prometheus.CounterVec
	Submissions    *prometheus.CounterVec
	RewardsClaimed prometheus.Counter
	ActiveWatchers prometheus.Gauge
}

// New registers the quest counters on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quest_http_requests_total",
			Help: "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		Logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quest_logins_total",
			Help: "Login attempts by outcome.",
		}, []string{"outcome"}),
		Submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quest_level_submissions_total",
			Help: "Level submissions by outcome (passed/failed).",
		}, []string{"outcome"}),
		RewardsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Name: "quest_reward_claims_total",
			Help: "Reward claims recorded for first-time completions.",
		}),
		ActiveWatchers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "quest_leaderboard_watchers",
			Help: "Connected leaderboard websocket watchers.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
