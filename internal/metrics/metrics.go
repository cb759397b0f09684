// Package metrics provides Prometheus metrics for slackfiles.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// API request metrics
	apiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackfiles_api_requests_total",
			Help: "Total number of Slack API requests",
		},
		[]string{"method", "status"},
	)

	apiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackfiles_api_request_duration_seconds",
			Help:    "Slack API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// Pagination metrics
	pagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackfiles_pages_fetched_total",
			Help: "Total listing pages accepted",
		},
		[]string{"listing"},
	)

	pageRetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackfiles_page_retries_total",
			Help: "Total listing page retries",
		},
		[]string{"listing", "reason"},
	)

	itemsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackfiles_items_fetched_total",
			Help: "Total records accumulated from listings",
		},
		[]string{"listing"},
	)

	// Dataset metrics
	datasetFiles = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slackfiles_dataset_files",
			Help: "Number of files per dataset",
		},
		[]string{"set"},
	)

	datasetBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slackfiles_dataset_bytes",
			Help: "Total bytes per dataset",
		},
		[]string{"set"},
	)

	directorySize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "slackfiles_directory_entries",
			Help: "Number of entries per directory",
		},
		[]string{"directory"},
	)

	// Store metrics
	storeOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slackfiles_store_operation_duration_seconds",
			Help:    "Session store operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "operation"},
	)

	storeOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slackfiles_store_operations_total",
			Help: "Total session store operations",
		},
		[]string{"backend", "operation", "status"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAPIRequest records one Slack API call.
func RecordAPIRequest(method string, status int, duration time.Duration) {
	apiRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	apiRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordPage records an accepted listing page and its item count.
func RecordPage(listing string, items int) {
	pagesFetchedTotal.WithLabelValues(listing).Inc()
	itemsFetchedTotal.WithLabelValues(listing).Add(float64(items))
}

// RecordPageRetry records a page retry. reason is "error" or "invalid".
func RecordPageRetry(listing, reason string) {
	pageRetriesTotal.WithLabelValues(listing, reason).Inc()
}

// SetDataset sets the size of a computed dataset.
func SetDataset(set string, count int, bytes int64) {
	datasetFiles.WithLabelValues(set).Set(float64(count))
	datasetBytes.WithLabelValues(set).Set(float64(bytes))
}

// SetDirectorySize sets the entry count of a directory.
func SetDirectorySize(directory string, entries int) {
	directorySize.WithLabelValues(directory).Set(float64(entries))
}

// RecordStoreOperation records a session store operation.
func RecordStoreOperation(backend, operation string, duration time.Duration, success bool) {
	storeOperationDuration.WithLabelValues(backend, operation).Observe(duration.Seconds())
	status := "success"
	if !success {
		status = "error"
	}
	storeOperationsTotal.WithLabelValues(backend, operation, status).Inc()
}

type transport struct {
	next http.RoundTripper
}

// Transport returns an http.RoundTripper that records API request metrics.
// The Slack method name is taken from the last path segment.
func Transport(next http.RoundTripper) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	return &transport{next: next}
}

func (t *transport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	method := req.URL.Path
	if i := strings.LastIndex(method, "/"); i >= 0 {
		method = method[i+1:]
	}
	resp, err := t.next.RoundTrip(req)
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	RecordAPIRequest(method, status, time.Since(start))
	return resp, err
}
