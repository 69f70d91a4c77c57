// Package metrics exposes Prometheus counters for the sweep loop.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RefreshTokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionstore_refresh_tokens_swept_total",
		Help: "Expired refresh tokens removed by the background sweep.",
	})

	UpstreamTokensSwept = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionstore_upstream_tokens_swept_total",
		Help: "Expired upstream platform tokens removed by the background sweep.",
	})

	SweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessionstore_sweep_runs_total",
		Help: "Completed sweep passes over both token stores.",
	})
)
