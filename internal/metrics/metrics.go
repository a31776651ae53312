// Package metrics registers the Prometheus collectors exported on /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weathermood_api_request_duration_seconds",
			Help:    "Duration of API requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	// Cache
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermood_cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache"}, // "bias", "catalog"
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermood_cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache"},
	)

	// Upstream providers
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weathermood_provider_requests_total",
			Help: "Requests to external providers by outcome",
		},
		[]string{"provider", "outcome"}, // outcome: "ok", "error", "fallback"
	)

	ProviderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weathermood_provider_request_duration_seconds",
			Help:    "Duration of external provider calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider"},
	)

	// Learning
	FeedbackRecorded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weathermood_feedback_recorded_total",
			Help: "Total number of mood feedback offsets recorded",
		},
	)

	FeedbackPurged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weathermood_feedback_purged_total",
			Help: "Total number of feedback records removed by retention",
		},
	)

	MoodScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "weathermood_final_mood_score",
			Help:    "Distribution of final mood scores served",
			Buckets: prometheus.LinearBuckets(0, 10, 11),
		},
	)
)

// RecordAPIRequest records the latency of one API request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(cache string, hit bool) {
	if hit {
		CacheHits.WithLabelValues(cache).Inc()
		return
	}
	CacheMisses.WithLabelValues(cache).Inc()
}

// RecordProviderCall records one external provider call.
func RecordProviderCall(provider string, duration time.Duration, err error) {
	ProviderDuration.WithLabelValues(provider).Observe(duration.Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordProviderFallback counts a fallback substituted for a failed provider.
func RecordProviderFallback(provider string) {
	ProviderRequests.WithLabelValues(provider, "fallback").Inc()
}
