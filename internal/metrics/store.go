package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Vector store and pipeline metrics.
var (
	StoreOpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_op_duration_seconds",
			Help:      "Vector store gateway operation duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"op", "status"},
	)

	SearchRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_requests_total",
			Help:      "Total search requests by mode and outcome",
		},
		[]string{"mode", "status"},
	)

	IngestRecordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_records_total",
			Help:      "Total records committed by the ingestion pipeline",
		},
	)
)

var registerStore sync.Once

// RegisterStoreMetrics registers store, search and ingest metrics. Safe to call more than once.
func RegisterStoreMetrics() {
	registerStore.Do(func() {
		prometheus.MustRegister(StoreOpDuration, SearchRequestsTotal, IngestRecordsTotal)
	})
}

// StatusLabel maps an error to the "status" label value.
func StatusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
