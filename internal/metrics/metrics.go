// Package metrics holds the Prometheus collectors for the search pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SearchesStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsearch_searches_started_total",
			Help: "Total number of searches submitted",
		},
		[]string{"source"},
	)

	SearchesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsearch_searches_completed_total",
			Help: "Total number of searches that produced records, by reconciliation strategy",
		},
		[]string{"source", "strategy"},
	)

	SearchesFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsearch_searches_failed_total",
			Help: "Total number of searches that failed, by error kind",
		},
		[]string{"source", "error_kind"},
	)

	SearchesDiscarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsearch_searches_discarded_total",
			Help: "Settled searches whose result was discarded after teardown or supersession",
		},
		[]string{"reason"},
	)

	SearchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "propsearch_search_duration_seconds",
			Help:    "Duration of the search pipeline in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"source"},
	)

	RecordsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "propsearch_records_dropped_total",
			Help: "Response elements dropped because they were not valid property records",
		},
	)

	UpstreamRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propsearch_upstream_requests_total",
			Help: "Requests sent to the upstream search service, by outcome",
		},
		[]string{"outcome"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "propsearch_sessions_active",
			Help: "Number of live search sessions",
		},
	)
)

// Source labels.
const (
	SourceAPI     = "api"
	SourceFixture = "fixture"
)

// Source returns the source label for a search.
func Source(useAPI bool) string {
	if useAPI {
		return SourceAPI
	}
	return SourceFixture
}
