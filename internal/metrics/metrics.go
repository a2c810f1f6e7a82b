// Package metrics registers the process's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BuildsTotal counts completed snapshot builds.
	BuildsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stackstatus_snapshot_builds_total",
		Help: "Number of snapshot builds completed.",
	})

	// ProbeFailures counts probe-infrastructure failures by probe name.
	ProbeFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stackstatus_probe_failures_total",
		Help: "Number of probe runs that resolved to a failure.",
	}, []string{"probe"})

	// BuildDuration observes wall-clock snapshot build time.
	BuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "stackstatus_snapshot_build_duration_seconds",
		Help:    "Time spent building a snapshot, bounded by the slowest probe.",
		Buckets: prometheus.DefBuckets,
	})
)
