// DustDB - Local snapshot store and query engine for Black Rock City data
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/dustdb/dustdb

// Package metrics provides Prometheus instrumentation for DustDB:
// store query performance, import cycles, upstream sync health, and
// HTTP endpoint latency.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Store metrics

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dustdb_query_duration_seconds",
			Help:    "Duration of store queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustdb_query_errors_total",
			Help: "Total number of store query errors",
		},
		[]string{"operation", "error_type"},
	)

	// Import metrics

	ImportDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "dustdb_import_duration_seconds",
			Help:    "Duration of full import cycles in seconds",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	ImportedRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustdb_imported_records_total",
			Help: "Total number of records written by import cycles",
		},
		[]string{"data_type"},
	)

	ImportFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dustdb_import_failures_total",
			Help: "Total number of import cycles that rolled back",
		},
	)

	// ImportAnomalies counts accepted-but-suspect upstream data observed
	// during import: occurrences with end <= start, events referencing both
	// a host camp and a host art, unresolved host references, and duplicate
	// event uids.
	ImportAnomalies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustdb_import_anomalies_total",
			Help: "Total number of data anomalies observed during import",
		},
		[]string{"kind"},
	)

	// Sync metrics

	SyncCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dustdb_sync_cycles_total",
			Help: "Total number of dataset refresh cycles by outcome",
		},
		[]string{"outcome"}, // "success", "unchanged", "error"
	)

	SyncFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dustdb_sync_fetch_duration_seconds",
			Help:    "Duration of upstream dataset fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"resource"},
	)

	CircuitBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dustdb_sync_circuit_breaker_state",
			Help: "Upstream circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)

	// HTTP metrics

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dustdb_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dustdb_http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// ObserveQuery records a store query's duration and outcome.
// Intended usage:
//
//	defer metrics.ObserveQuery("fetch_events", time.Now())
func ObserveQuery(operation string, start time.Time) {
	DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

// RecordQueryError records a failed store query.
func RecordQueryError(operation, errorType string) {
	DBQueryErrors.WithLabelValues(operation, errorType).Inc()
}

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}
