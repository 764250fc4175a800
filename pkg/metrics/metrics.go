// Package metrics provides the Prometheus registry shared by the ingestion
// packages. Metrics are defined in their respective packages (client, cache,
// ratelimit, collector) with promauto to keep packages independent.
//
// A run is a short-lived batch job with no scrape endpoint, so the collected
// values can be dumped in node_exporter textfile format with WriteTextfile.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by all packages.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer matching Registry.
var Gatherer = prometheus.DefaultGatherer

// WriteTextfile writes every gathered metric to path in the text exposition
// format. Parent directories are created as needed.
func WriteTextfile(path string) error {
	if path == "" {
		return fmt.Errorf("metrics file path is empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, Gatherer); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - pokeapi_requests_total{endpoint, status} (Counter): requests by endpoint and outcome
//   - pokeapi_request_duration_seconds{endpoint} (Histogram): request duration
//   - pokeapi_errors_total{class} (Counter): failures by class (client, server, network, decode)
//
// Cache Metrics (pkg/cache):
//   - pokeapi_cache_hits_total{layer="redis"} (Counter)
//   - pokeapi_cache_misses_total (Counter)
//   - pokeapi_cache_size_bytes{layer="redis"} (Gauge)
//   - pokeapi_304_responses_total (Counter)
//   - pokeapi_conditional_requests_total (Counter)
//   - pokeapi_cache_errors_total{operation} (Counter)
//
// Pacing Metrics (pkg/ratelimit):
//   - pokeapi_pacing_waits_total (Counter): waits that had to sleep
//   - pokeapi_pacing_wait_seconds (Histogram): time spent sleeping per wait
//
// Pipeline Metrics (pkg/collector):
//   - pokeapi_entries_total{outcome} (Counter): entries by outcome (ok, fetch_error, flatten_error)
//
// Example Prometheus Queries:
//
//   # Entry failure ratio
//   sum(pokeapi_entries_total{outcome!="ok"}) / sum(pokeapi_entries_total)
//
//   # Cache Hit Rate
//   sum(pokeapi_cache_hits_total) /
//   (sum(pokeapi_cache_hits_total) + sum(pokeapi_cache_misses_total))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(pokeapi_request_duration_seconds_bucket[5m]))
