package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Enrichment provider metrics
var (
	// ProviderRequestsTotal counts outbound provider calls by provider and outcome
	ProviderRequestsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_requests_total",
			Help:      "Total number of enrichment provider requests",
		},
		[]string{"provider", "outcome"}, // outcome: success|error|empty
	)

	// ProviderLatency records provider call latency
	ProviderLatency = promauto.With(Registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "provider_latency_seconds",
			Help:      "Enrichment provider request latency in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8},
		},
		[]string{"provider"},
	)

	// CacheLookupsTotal counts response cache lookups
	CacheLookupsTotal = promauto.With(Registry).NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Total number of response cache lookups",
		},
		[]string{"namespace", "result"}, // result: hit|miss|error
	)
)

// RecordProvider records one provider call. outcome is "success", "error" or "empty".
func RecordProvider(provider, outcome string, start time.Time) {
	ProviderRequestsTotal.WithLabelValues(provider, outcome).Inc()
	ProviderLatency.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
