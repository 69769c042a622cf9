package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/minvoker/tariff-calculator/internal/audit"
	"github.com/minvoker/tariff-calculator/internal/billing/application"
	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	billinghttp "github.com/minvoker/tariff-calculator/internal/billing/interfaces/http"
	"github.com/minvoker/tariff-calculator/internal/config"
	"github.com/minvoker/tariff-calculator/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	logger := log.New(os.Stdout, "", log.LstdFlags)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("config error: %v", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		logger.Fatalf("time zone error: %v", err)
	}

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}
	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		logger.Fatalf("db schema error: %v", err)
	}
	metrics.RegisterDBMetrics(db, logger)

	tariffRepo := postgres.NewTariffRepository(db)
	readingRepo := postgres.NewReadingRepository(db)
	runRepo := postgres.NewCalcRunRepository(db)

	calcService, err := application.NewCalcService(tariffRepo, readingRepo, runRepo, cfg.MeteringOptions(), logger)
	if err != nil {
		logger.Fatalf("calc service error: %v", err)
	}
	tariffService, err := application.NewTariffService(tariffRepo)
	if err != nil {
		logger.Fatalf("tariff service error: %v", err)
	}

	auditor := audit.NewLogAuditor(logger)
	apiHandler, err := billinghttp.NewHandler(calcService, tariffService, loc, auditor)
	if err != nil {
		logger.Fatalf("billing handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/calculations", apiHandler)
	mux.Handle("/api/v1/calculations/", apiHandler)
	mux.Handle("/api/v1/customers/", apiHandler)
	mux.Handle("/api/v1/tariffs/versions", apiHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.ListenAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.ListenAddr)
	logger.Fatal(server.ListenAndServe())
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
