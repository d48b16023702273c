package search

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// simulationsTotal counts physics steps across all runs
	simulationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "dragster_simulations_total",
		Help: "Total physics steps performed by the search",
	})

	groupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dragster_groups_total",
		Help: "Initial frame counter groups searched, by outcome",
	}, []string{"result"})

	// liveStates tracks the size of the current generation per group
	liveStates = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dragster_live_states",
		Help: "Live states in the current generation of a group",
	}, []string{"frame_counter"})

	groupDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dragster_group_duration_seconds",
		Help:    "Wall time spent searching one group",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dragster_runs_total",
		Help: "Completed search runs, by outcome",
	}, []string{"result"})
)
