package cache

import (
	"github.com/Sternrassler/redmine-client/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var factory = promauto.With(metrics.Registry)

var (
	// CacheHits tracks cache hits by layer (redis)
	CacheHits = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of Redmine response cache hits",
		},
		[]string{"layer"},
	)

	// CacheMisses tracks cache misses
	CacheMisses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of Redmine response cache misses",
		},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: metrics.Namespace,
			Name:      "cache_size_bytes",
			Help:      "Bytes written to the Redmine response cache",
		},
		[]string{"layer"},
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "304_responses_total",
			Help:      "Total number of Redmine 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "conditional_requests_total",
			Help:      "Total number of conditional requests sent to Redmine",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metrics.Namespace,
			Name:      "cache_errors_total",
			Help:      "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate"
	)
)
