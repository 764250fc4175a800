package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks lookups that found an entry, fresh or stale
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_hits_total",
			Help: "Total number of response cache hits",
		},
		[]string{"layer"}, // "redis"
	)

	// CacheMisses tracks lookups that found nothing
	CacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_misses_total",
			Help: "Total number of response cache misses",
		},
	)

	// CacheStale tracks hits whose entry had to be revalidated
	CacheStale = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_stale_total",
			Help: "Total number of cache hits on entries past their freshness lifetime",
		},
	)

	// CacheSize tracks bytes written to the cache by layer
	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pokeapi_cache_size_bytes",
			Help: "Bytes written to the response cache",
		},
		[]string{"layer"}, // "redis"
	)

	// NotModifiedResponses tracks 304 Not Modified responses
	NotModifiedResponses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_304_responses_total",
			Help: "Total number of 304 Not Modified responses",
		},
	)

	// ConditionalRequestsSent tracks requests sent with If-None-Match or If-Modified-Since
	ConditionalRequestsSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pokeapi_conditional_requests_total",
			Help: "Total number of conditional requests sent",
		},
	)

	// CacheErrors tracks cache operation errors
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pokeapi_cache_errors_total",
			Help: "Total number of cache operation errors",
		},
		[]string{"operation"}, // "get", "set", "delete"
	)
)
