package metrics

import "github.com/prometheus/client_golang/prometheus"

// Backend and auth Prometheus metrics.
var (
	BackendAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talentsearch",
			Name:      "backend_attempts_total",
			Help:      "Total number of backend search attempts",
		},
		[]string{"outcome"}, // ok / retryable / rejected / canceled
	)

	BackendRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "talentsearch",
			Name:      "backend_retries_total",
			Help:      "Total number of backend search retries",
		},
	)

	SearchFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "talentsearch",
			Name:      "search_fetch_duration_seconds",
			Help:      "Logical page fetch duration in seconds, retries included",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"result"}, // ok / unavailable / rejected / canceled
	)

	SearchResultsTotal = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "talentsearch",
			Name:      "search_page_results",
			Help:      "Number of results per returned page",
			Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)

	AuthRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "talentsearch",
			Name:      "auth_rejections_total",
			Help:      "Total rejected credentials",
		},
		[]string{"reason"}, // missing / invalid / replayed / scope
	)
)

var searchMetricsRegistered bool

// RegisterSearchMetrics registers backend and auth metrics. Must be called once from main.
func RegisterSearchMetrics() {
	if searchMetricsRegistered {
		return
	}
	prometheus.MustRegister(BackendAttemptsTotal)
	prometheus.MustRegister(BackendRetriesTotal)
	prometheus.MustRegister(SearchFetchDuration)
	prometheus.MustRegister(SearchResultsTotal)
	prometheus.MustRegister(AuthRejectionsTotal)
	searchMetricsRegistered = true
}
