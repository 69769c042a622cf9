package integration_test

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/minvoker/tariff-calculator/internal/billing"
	"github.com/minvoker/tariff-calculator/internal/billing/application"
	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	"github.com/minvoker/tariff-calculator/internal/metering"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const testDocument = `{
	"time_zone": "Australia/Melbourne",
	"time_bands": [
		{"id": "peak", "days": ["all"], "times": [{"from": "07:00", "to": "22:00"}]}
	],
	"components": [
		{"id": "energy_peak", "unit": "c/kWh", "rate_schedule": [{"value": 30}],
		 "applies_to": ["usage_peak"], "calculation": "peak_usage * rate * loss_factor"},
		{"id": "supply", "unit": "c/day", "rate_schedule": [{"value": 90}],
		 "applies_to": ["fixed"], "calculation": "days * rate"}
	]
}`

func TestCalcService_RunStoreAndReuse(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	customerID := "customer-int-001"
	_, _ = db.ExecContext(ctx, "DELETE FROM calc_runs WHERE customer_id = $1", customerID)
	_, _ = db.ExecContext(ctx, "DELETE FROM meter_readings WHERE customer_id = $1", customerID)
	_, _ = db.ExecContext(ctx, "DELETE FROM tariff_versions WHERE plan = $1", "plan-int")

	tariffRepo := postgres.NewTariffRepository(db)
	readingRepo := postgres.NewReadingRepository(db)
	runRepo := postgres.NewCalcRunRepository(db)

	tariffService, err := application.NewTariffService(tariffRepo)
	if err != nil {
		t.Fatalf("tariff service: %v", err)
	}
	version, err := tariffService.CreateVersion(ctx, "plan-int", 1, []byte(testDocument),
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), nil)
	if err != nil {
		t.Fatalf("create version: %v", err)
	}

	loc, err := time.LoadLocation("Australia/Melbourne")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 10)
	var readings []metering.Reading
	for day := 0; day < 10; day++ {
		readings = append(readings,
			metering.Reading{Timestamp: start.AddDate(0, 0, day).Add(12 * time.Hour), KWh: 6},
			metering.Reading{Timestamp: start.AddDate(0, 0, day).Add(3 * time.Hour), KWh: 4},
		)
	}
	if err := readingRepo.Insert(ctx, customerID, readings); err != nil {
		t.Fatalf("insert readings: %v", err)
	}

	logger := log.New(os.Stderr, "", log.LstdFlags)
	calcService, err := application.NewCalcService(tariffRepo, readingRepo, runRepo, metering.Options{}, logger)
	if err != nil {
		t.Fatalf("calc service: %v", err)
	}

	period := billing.Period{Start: start, End: end}
	first, err := calcService.Run(ctx, customerID, version.ID, period, false)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	if first.Reused {
		t.Fatal("first run should not be reused")
	}
	// 60 kWh peak at 0.30 plus 10 days supply at 0.90.
	wantTotal := 60*0.30 + 10*0.90
	if first.Result.TotalCost != wantTotal {
		t.Fatalf("total = %v, want %v", first.Result.TotalCost, wantTotal)
	}
	if line, ok := first.Result.Breakdown["energy_peak"]; !ok || line.UnitsUsed != 60 {
		t.Fatalf("energy_peak line = %+v", line)
	}

	second, err := calcService.Run(ctx, customerID, version.ID, period, false)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if !second.Reused {
		t.Fatal("second run should reuse the stored result")
	}
	if second.RunID != first.RunID {
		t.Fatalf("reused run id = %s, want %s", second.RunID, first.RunID)
	}
	if second.Result.TotalCost != first.Result.TotalCost {
		t.Fatalf("reused total = %v, want %v", second.Result.TotalCost, first.Result.TotalCost)
	}

	forced, err := calcService.Run(ctx, customerID, version.ID, period, true)
	if err != nil {
		t.Fatalf("forced run: %v", err)
	}
	if forced.Reused {
		t.Fatal("forced run should recompute")
	}
	if forced.RunID == first.RunID {
		t.Fatal("forced run should store a new record")
	}
	if forced.Checksum != first.Checksum {
		t.Fatalf("checksum changed on identical inputs: %s vs %s", forced.Checksum, first.Checksum)
	}

	// New readings shift the checksum, so the next run recomputes.
	extra := []metering.Reading{{Timestamp: start.Add(18 * time.Hour), KWh: 2}}
	if err := readingRepo.Insert(ctx, customerID, extra); err != nil {
		t.Fatalf("insert extra reading: %v", err)
	}
	third, err := calcService.Run(ctx, customerID, version.ID, period, false)
	if err != nil {
		t.Fatalf("third run: %v", err)
	}
	if third.Reused {
		t.Fatal("run after backfill should recompute")
	}
	if third.Checksum == first.Checksum {
		t.Fatal("checksum should change after backfill")
	}

	latest, err := calcService.LatestBill(ctx, customerID, version.ID, period)
	if err != nil {
		t.Fatalf("latest bill: %v", err)
	}
	if !latest.Reused {
		t.Fatal("latest bill should come from storage")
	}
	if latest.RunID != third.RunID {
		t.Fatalf("latest bill run id = %s, want %s", latest.RunID, third.RunID)
	}

	stored, err := calcService.GetRun(ctx, third.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if stored.Result.TotalCost != third.Result.TotalCost {
		t.Fatalf("stored total = %v, want %v", stored.Result.TotalCost, third.Result.TotalCost)
	}
}

func TestTariffRepository_Versioning(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}
	_, _ = db.ExecContext(ctx, "DELETE FROM tariff_versions WHERE plan = $1", "plan-ver")

	tariffService, err := application.NewTariffService(postgres.NewTariffRepository(db))
	if err != nil {
		t.Fatalf("tariff service: %v", err)
	}
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if _, err := tariffService.CreateVersion(ctx, "plan-ver", 1, []byte(testDocument), from, nil); err != nil {
		t.Fatalf("create v1: %v", err)
	}
	v2, err := tariffService.CreateVersion(ctx, "plan-ver", 2, []byte(testDocument), from.AddDate(1, 0, 0), nil)
	if err != nil {
		t.Fatalf("create v2: %v", err)
	}

	latest, err := tariffService.LatestForPlan(ctx, "plan-ver")
	if err != nil {
		t.Fatalf("latest for plan: %v", err)
	}
	if latest.ID != v2.ID || latest.Version != 2 {
		t.Fatalf("latest = v%d (%s), want v2 (%s)", latest.Version, latest.ID, v2.ID)
	}

	if _, err := tariffService.CreateVersion(ctx, "plan-ver", 3, []byte(`{"components": []}`), from, nil); err == nil {
		t.Fatal("expected invalid document to be rejected")
	}
}
