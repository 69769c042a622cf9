// Package metrics exposes the service's Prometheus instrumentation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "tariffcalc_"

const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultReused  = "reused"
)

var (
	calculationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "calculation_duration_seconds",
			Help:    "Duration of bill calculations by outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)
	checksumReuse = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: metricPrefix + "checksum_reuse_total",
			Help: "Calculations answered from a stored run via the checksum gate.",
		},
	)
	readingsProcessed = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "readings_per_calculation",
			Help:    "Meter readings consumed per calculation.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		},
	)
	exportDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    metricPrefix + "export_duration_seconds",
			Help:    "Duration of statement exports by format and outcome.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"format", "result"},
	)
)

func init() {
	prometheus.MustRegister(calculationDuration, checksumReuse, readingsProcessed, exportDuration)
}

// ObserveCalculation records one calculation attempt.
func ObserveCalculation(result string, d time.Duration) {
	calculationDuration.WithLabelValues(result).Observe(d.Seconds())
}

// CountChecksumReuse records a checksum-gate hit.
func CountChecksumReuse() {
	checksumReuse.Inc()
}

// ObserveReadings records the input size of a calculation.
func ObserveReadings(n int) {
	readingsProcessed.Observe(float64(n))
}

// ObserveExport records one statement export.
func ObserveExport(format, result string, d time.Duration) {
	exportDuration.WithLabelValues(format, result).Observe(d.Seconds())
}
