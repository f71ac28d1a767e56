// Package metrics holds the Prometheus registerer shared by the Redmine
// client packages. Metrics are declared next to the code that updates them
// (client, cache, pagination) and registered here via promauto.With.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the registerer every package registers its metrics with.
// Defaults to the global Prometheus registerer so an application's
// /metrics handler picks them up without extra wiring.
var Registry prometheus.Registerer = prometheus.DefaultRegisterer

// Namespace prefixes every metric name.
const Namespace = "redmine"

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - redmine_requests_total{method, status} (Counter): Requests by HTTP method and outcome
//   - redmine_request_duration_seconds{method} (Histogram): Request latency
//   - redmine_errors_total{kind} (Counter): Classified errors by kind
//     (timeout, connectivity, not_found, unauthorized, forbidden, conflict,
//     validation, not_acceptable, generic)
//
// Pagination Metrics (pkg/pagination):
//   - redmine_pages_fetched_total{strategy} (Counter): Pages fetched by strategy (sequential, concurrent)
//   - redmine_pages_in_flight (Gauge): Page fetches currently executing
//   - redmine_fetch_all_duration_seconds{strategy} (Histogram): Fetch-all latency
//
// Cache Metrics (pkg/cache):
//   - redmine_cache_hits_total{layer="redis"} (Counter)
//   - redmine_cache_misses_total (Counter)
//   - redmine_cache_size_bytes{layer="redis"} (Gauge)
//   - redmine_304_responses_total (Counter)
//   - redmine_conditional_requests_total (Counter)
//   - redmine_cache_errors_total{operation} (Counter)
//
// Example Prometheus Queries:
//
//   # Validation failure rate
//   rate(redmine_errors_total{kind="validation"}[5m])
//
//   # Concurrent page fan-out
//   max_over_time(redmine_pages_in_flight[5m])
//
//   # P95 fetch-all latency
//   histogram_quantile(0.95, rate(redmine_fetch_all_duration_seconds_bucket[5m]))
