// Command seed_readings loads a tariff document and synthetic interval
// readings into the database, for local development and load testing.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/minvoker/tariff-calculator/internal/billing/application"
	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	"github.com/minvoker/tariff-calculator/internal/metering"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type config struct {
	dsn          string
	customerID   string
	plan         string
	version      int
	documentPath string
	startDate    string
	days         int
	intervalMin  int
	baseKWh      float64
	peakKVA      float64
	timeZone     string
}

func main() {
	cfg := parseFlags()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.dsn)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		logger.Fatalf("db schema error: %v", err)
	}

	loc, err := time.LoadLocation(cfg.timeZone)
	if err != nil {
		logger.Fatalf("time zone error: %v", err)
	}
	start, err := time.ParseInLocation("2006-01-02", cfg.startDate, loc)
	if err != nil {
		logger.Fatalf("start date error: %v", err)
	}

	if cfg.documentPath != "" {
		raw, err := os.ReadFile(cfg.documentPath)
		if err != nil {
			logger.Fatalf("read document error: %v", err)
		}
		tariffService, err := application.NewTariffService(postgres.NewTariffRepository(db))
		if err != nil {
			logger.Fatalf("tariff service error: %v", err)
		}
		rec, err := tariffService.CreateVersion(ctx, cfg.plan, cfg.version, raw, start, nil)
		if err != nil {
			logger.Fatalf("create tariff version error: %v", err)
		}
		logger.Printf("tariff version %s stored (plan=%s v%d)", rec.ID, rec.Plan, rec.Version)
	}

	readings := buildReadings(start, cfg)
	readingRepo := postgres.NewReadingRepository(db)
	if err := readingRepo.Insert(ctx, cfg.customerID, readings); err != nil {
		logger.Fatalf("insert readings error: %v", err)
	}
	logger.Printf("%d readings stored for customer=%s from %s over %d days",
		len(readings), cfg.customerID, start.Format("2006-01-02"), cfg.days)
}

// buildReadings generates a daily load curve: low overnight, a morning
// ramp and an evening peak, with demand following consumption.
func buildReadings(start time.Time, cfg config) []metering.Reading {
	interval := time.Duration(cfg.intervalMin) * time.Minute
	perDay := int((24 * time.Hour) / interval)
	readings := make([]metering.Reading, 0, cfg.days*perDay)
	for day := 0; day < cfg.days; day++ {
		dayStart := start.AddDate(0, 0, day)
		for i := 0; i < perDay; i++ {
			ts := dayStart.Add(time.Duration(i) * interval)
			hour := float64(ts.Hour()) + float64(ts.Minute())/60
			shape := 0.4 + 0.6*math.Exp(-math.Pow(hour-18, 2)/8) + 0.3*math.Exp(-math.Pow(hour-8, 2)/6)
			kwh := cfg.baseKWh * shape
			kva := cfg.peakKVA * shape
			readings = append(readings, metering.Reading{Timestamp: ts, KWh: kwh, KVA: &kva})
		}
	}
	return readings
}

func parseFlags() config {
	var cfg config
	flag.StringVar(&cfg.dsn, "dsn", os.Getenv("DATABASE_URL"), "postgres dsn (defaults to DATABASE_URL)")
	flag.StringVar(&cfg.customerID, "customer", "customer-demo-001", "customer id to seed")
	flag.StringVar(&cfg.plan, "plan", "plan-demo", "tariff plan name")
	flag.IntVar(&cfg.version, "version", 1, "tariff version number")
	flag.StringVar(&cfg.documentPath, "document", "", "path to a tariff document json to store (optional)")
	flag.StringVar(&cfg.startDate, "start", "2024-01-01", "first day of readings (YYYY-MM-DD)")
	flag.IntVar(&cfg.days, "days", 31, "number of days to seed")
	flag.IntVar(&cfg.intervalMin, "interval", 30, "reading interval in minutes")
	flag.Float64Var(&cfg.baseKWh, "base-kwh", 5, "baseline energy per interval")
	flag.Float64Var(&cfg.peakKVA, "peak-kva", 40, "demand at the evening peak")
	flag.StringVar(&cfg.timeZone, "tz", "Australia/Melbourne", "time zone for naive timestamps")
	flag.Parse()

	if cfg.dsn == "" {
		fmt.Fprintln(os.Stderr, "-dsn or DATABASE_URL is required")
		os.Exit(2)
	}
	if cfg.days < 1 || cfg.intervalMin < 1 {
		fmt.Fprintln(os.Stderr, "-days and -interval must be positive")
		os.Exit(2)
	}
	return cfg
}
