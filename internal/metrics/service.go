package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search, cache, popularity and recommendation Prometheus metrics.
var (
	CacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelf",
			Name:      "cache_total",
			Help:      "Result cache lookups by namespace and result",
		},
		[]string{"namespace", "result"}, // result: hit, miss, error
	)

	SearchStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "shelf",
			Name:      "search_stage_duration_seconds",
			Help:      "Duration of each search pipeline stage in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"stage"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelf",
			Name:      "search_requests_total",
			Help:      "Search requests by outcome",
		},
		[]string{"outcome"}, // hit, miss, failed, timeout
	)

	PopularityRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "shelf",
			Name:      "popularity_records_total",
			Help:      "Search terms recorded by the popularity tracker",
		},
	)

	RecommendationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "shelf",
			Name:      "recommendations_total",
			Help:      "Recommendation responses by source",
		},
		[]string{"source"},
	)

	CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "shelf",
			Name:      "circuit_breaker_state",
			Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

var serviceMetricsRegistered bool

// RegisterServiceMetrics registers search pipeline metrics. Must be called once from main.
func RegisterServiceMetrics() {
	if serviceMetricsRegistered {
		return
	}
	prometheus.MustRegister(
		CacheTotal,
		SearchStageDuration,
		SearchRequestsTotal,
		PopularityRecordsTotal,
		RecommendationsTotal,
		CircuitBreakerState,
	)
	serviceMetricsRegistered = true
}
