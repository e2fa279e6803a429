// Package metrics exposes the Prometheus registry shared by the sync job and
// pushes it to a Pushgateway at the end of a run.
// All metrics are defined in their respective packages (catalog, cache,
// ratelimit, dataset, job) and registered there via promauto.
package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName is the Pushgateway job label of the sync job.
const JobName = "character_sync"

// Registry is the default Prometheus registry used by the sync job.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects the metrics registered with Registry.
var Gatherer prometheus.Gatherer = prometheus.DefaultGatherer

// Push replaces the metrics of job on the Pushgateway at url with the
// current values from g.
func Push(ctx context.Context, url, job string, g prometheus.Gatherer) error {
	if url == "" {
		return fmt.Errorf("pushgateway url is required")
	}
	if err := push.New(url, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics to %s: %w", url, err)
	}
	return nil
}

// Metrics Documentation
//
// Run Metrics (pkg/job):
//   - sync_runs_total{result} (Counter): Runs by result (success, secret_error, client_error, fetch_error, read_error, write_error)
//   - sync_run_duration_seconds (Histogram): Run duration
//   - sync_records_fetched (Gauge): Records fetched in the last run
//   - sync_records_appended (Gauge): Records appended in the last run
//   - sync_last_success_timestamp_seconds (Gauge): Unix time of the last successful run
//
// Catalog Metrics (pkg/catalog):
//   - catalog_requests_total{status} (Counter): Requests by HTTP status, network_error or quota_blocked
//   - catalog_request_duration_seconds (Histogram): Request duration
//   - catalog_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Cache Metrics (pkg/cache):
//   - catalog_cache_hits_total{layer="redis"} (Counter): Page cache hits
//   - catalog_cache_misses_total (Counter): Page cache misses
//   - catalog_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the page cache
//   - catalog_304_responses_total (Counter): 304 Not Modified responses
//   - catalog_conditional_requests_total (Counter): Conditional requests sent with If-None-Match
//   - catalog_cache_errors_total{operation} (Counter): Cache operation errors
//
// Quota Metrics (pkg/ratelimit):
//   - catalog_quota_used (Gauge): Calls used today
//   - catalog_quota_blocks_total (Counter): Requests refused because the quota was exhausted
//   - catalog_quota_warnings_total (Counter): Requests made with less than 10% of the quota left
//
// Dataset Metrics (pkg/dataset):
//   - dataset_records_read_total (Counter): Records read from existing partitions
//   - dataset_records_written_total (Counter): Records appended
//   - dataset_partitions_written_total (Counter): Partitions appended
//   - dataset_errors_total{operation} (Counter): Errors by operation (list, get, decode, put)
//
// Example Prometheus Queries:
//
//   # Runs that did not finish
//   sum(increase(sync_runs_total{result!="success"}[1d]))
//
//   # Hours since the last good run
//   (time() - sync_last_success_timestamp_seconds) / 3600
//
//   # Share of pages served from cache
//   catalog_304_responses_total / catalog_conditional_requests_total
