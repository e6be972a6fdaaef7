package runner

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentkit",
			Subsystem: "runner",
			Name:      "runs_total",
			Help:      "Total number of agent runs by outcome",
		},
		[]string{"app", "status"},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "agentkit",
			Subsystem: "runner",
			Name:      "events_total",
			Help:      "Total number of events emitted by agents",
		},
		[]string{"app", "author"},
	)

	runDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "agentkit",
			Subsystem: "runner",
			Name:      "run_duration_seconds",
			Help:      "Agent run duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
		[]string{"app"},
	)

	activeRuns = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "agentkit",
			Subsystem: "runner",
			Name:      "active_runs",
			Help:      "Number of runs currently executing",
		},
		[]string{"app"},
	)
)
