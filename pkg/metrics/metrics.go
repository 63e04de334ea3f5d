// Package metrics provides Prometheus metrics for Strata's serialization
// and storage operations. Metrics register automatically via promauto and
// recording is safe for concurrent use.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RecordsSerialized counts records serialized, labeled by format.
	RecordsSerialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_records_serialized_total",
			Help: "Total number of records serialized",
		},
		[]string{"format"},
	)

	// RecordsDeserialized counts records deserialized, labeled by format.
	RecordsDeserialized = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_records_deserialized_total",
			Help: "Total number of records deserialized",
		},
		[]string{"format"},
	)

	// BytesUploaded counts payload bytes uploaded, labeled by backend.
	BytesUploaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_bytes_uploaded_total",
			Help: "Total payload bytes uploaded to remote stores",
		},
		[]string{"backend"},
	)

	// BytesDownloaded counts payload bytes downloaded, labeled by backend.
	BytesDownloaded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_bytes_downloaded_total",
			Help: "Total payload bytes downloaded from remote stores",
		},
		[]string{"backend"},
	)

	// UploadConflicts counts destination conflicts seen on upload.
	UploadConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_upload_conflicts_total",
			Help: "Total upload attempts that hit an existing destination",
		},
		[]string{"backend"},
	)

	// OperationDuration tracks store operation latency.
	OperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "strata_operation_duration_seconds",
			Help:    "Latency of serialize/upload/download operations",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		},
		[]string{"operation", "backend"},
	)

	// OperationErrors counts failed operations.
	OperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "strata_operation_errors_total",
			Help: "Total failed store operations",
		},
		[]string{"operation", "backend"},
	)
)

// Timer measures the duration of a single operation.
type Timer struct {
	operation string
	backend   string
	start     time.Time
}

// NewTimer starts a timer for an operation.
func NewTimer(operation, backend string) *Timer {
	return &Timer{
		operation: operation,
		backend:   backend,
		start:     time.Now(),
	}
}

// Stop records the elapsed duration and returns it.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	OperationDuration.WithLabelValues(t.operation, t.backend).Observe(elapsed.Seconds())
	return elapsed
}
