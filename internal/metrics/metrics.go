// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LeaderboardRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindshare_leaderboard_requests_total",
		Help: "Leaderboard computations by period and outcome",
	}, []string{"period", "outcome"})

	LeaderboardEntries = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "mindshare_leaderboard_entries",
		Help: "Number of ranked authors in the last computed leaderboard",
	}, []string{"period"})

	PostsCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindshare_posts_collected_total",
		Help: "Posts newly stored by collectors",
	}, []string{"source"})

	CollectErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindshare_collect_errors_total",
		Help: "Collector runs that failed",
	}, []string{"source"})
)

// ObserveLeaderboard records one leaderboard computation.
func ObserveLeaderboard(period, outcome string, entries int) {
	LeaderboardRequests.WithLabelValues(period, outcome).Inc()
	LeaderboardEntries.WithLabelValues(period).Set(float64(entries))
}
