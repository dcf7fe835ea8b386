package service

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	operationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fast_backup",
		Name:      "operations_total",
		Help:      "Backup and recovery operations by operation and result.",
	}, []string{"operation", "result"})

	operationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fast_backup",
		Name:      "operation_duration_seconds",
		Help:      "Duration of backup and recovery operations.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 4, 9),
	}, []string{"operation"})

	lastBackupBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "fast_backup",
		Name:      "last_backup_bytes",
		Help:      "Artifact size of the most recent successful backup.",
	})

	restoredDocuments = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fast_backup",
		Name:      "restored_documents_total",
		Help:      "Documents written by restores, by restore mode.",
	}, []string{"mode"})
)

// observe records one operation outcome, use as `defer observe("restore", time.Now(), &err)`
func observe(operation string, start time.Time, err *error) {
	result := "success"
	if err != nil && *err != nil {
		result = "failure"
	}
	operationsTotal.WithLabelValues(operation, result).Inc()
	operationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
