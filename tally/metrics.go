package tally

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.anonvote.io/avote/metrics"
)

// Tally collectors
var (
	// Runs counts tally runs by result.
	Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Name:      "runs",
		Help:      "The number of tally runs, by result",
	}, []string{"result"})
	// Outcomes counts processed ballots by outcome kind.
	Outcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "tally",
		Name:      "ballot_outcomes",
		Help:      "The number of processed ballots, by outcome",
	}, []string{"kind"})
	// RunDuration observes the duration of tally runs.
	RunDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "tally",
		Name:      "run_duration_seconds",
		Help:      "The duration of tally runs",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
	})
)

// RegisterMetrics registers the tally collectors.
func RegisterMetrics() {
	metrics.Register(Runs)
	metrics.Register(Outcomes)
	metrics.Register(RunDuration)
}
