package metrics

import (
	"database/sql"
	"log"

	"github.com/prometheus/client_golang/prometheus"
)

// RegisterDBMetrics exposes gauges over the persisted billing tables and
// the connection pool. Registration errors are logged, not fatal, so tests
// can register against throwaway databases.
func RegisterDBMetrics(db *sql.DB, logger *log.Logger) {
	register(logger, prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "calc_runs_stored",
			Help: "Stored calculation runs",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM calc_runs")
		},
	))

	register(logger, prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "tariff_versions_stored",
			Help: "Stored tariff versions",
		},
		func() float64 {
			return queryCount(db, logger, "SELECT COUNT(*) FROM tariff_versions")
		},
	))

	register(logger, prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: metricPrefix + "db_open_connections",
			Help: "Open connections in the database pool",
		},
		func() float64 {
			if db == nil {
				return 0
			}
			return float64(db.Stats().OpenConnections)
		},
	))
}

func register(logger *log.Logger, c prometheus.Collector) {
	if err := prometheus.Register(c); err != nil && logger != nil {
		logger.Printf("metrics registration failed: %v", err)
	}
}

func queryCount(db *sql.DB, logger *log.Logger, query string) float64 {
	if db == nil {
		return 0
	}
	var count int64
	if err := db.QueryRow(query).Scan(&count); err != nil {
		if logger != nil {
			logger.Printf("metrics query failed: %v", err)
		}
		return 0
	}
	if count < 0 {
		return 0
	}
	return float64(count)
}
