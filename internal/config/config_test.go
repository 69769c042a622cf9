package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/minvoker/tariff-calculator/internal/metering"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TARIFFCALC_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/tariffcalc")
	t.Setenv("TARIFFCALC_LISTEN_ADDR", "")
	t.Setenv("TARIFFCALC_TIME_ZONE", "")
	t.Setenv("TARIFFCALC_DEMAND_AGG", "")
	t.Setenv("TARIFFCALC_DEMAND_WINDOW_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.TimeZone != "Australia/Melbourne" {
		t.Errorf("TimeZone = %q", cfg.TimeZone)
	}
	opts := cfg.MeteringOptions()
	if opts.DemandAgg != metering.AggMax {
		t.Errorf("DemandAgg = %q", opts.DemandAgg)
	}
	if opts.DemandWindow != 30*time.Minute {
		t.Errorf("DemandWindow = %s", opts.DemandWindow)
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte("listen_addr: \":9090\"\ndatabase_url: postgres://file/db\ndemand_agg: mean\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TARIFFCALC_CONFIG", path)
	t.Setenv("DATABASE_URL", "postgres://env/db")
	t.Setenv("TARIFFCALC_LISTEN_ADDR", "")
	t.Setenv("TARIFFCALC_TIME_ZONE", "")
	t.Setenv("TARIFFCALC_DEMAND_AGG", "")
	t.Setenv("TARIFFCALC_DEMAND_WINDOW_MINUTES", "45")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("ListenAddr = %q, want file value", cfg.ListenAddr)
	}
	if cfg.DatabaseURL != "postgres://env/db" {
		t.Errorf("DatabaseURL = %q, want env override", cfg.DatabaseURL)
	}
	if cfg.DemandAgg != "mean" {
		t.Errorf("DemandAgg = %q", cfg.DemandAgg)
	}
	if cfg.DemandWindowMinutes != 45 {
		t.Errorf("DemandWindowMinutes = %d", cfg.DemandWindowMinutes)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("TARIFFCALC_CONFIG", "")
	t.Setenv("DATABASE_URL", "postgres://localhost/tariffcalc")
	t.Setenv("TARIFFCALC_LISTEN_ADDR", "")
	t.Setenv("TARIFFCALC_DEMAND_WINDOW_MINUTES", "")

	t.Setenv("TARIFFCALC_TIME_ZONE", "Mars/Olympus")
	t.Setenv("TARIFFCALC_DEMAND_AGG", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown time zone")
	}

	t.Setenv("TARIFFCALC_TIME_ZONE", "")
	t.Setenv("TARIFFCALC_DEMAND_AGG", "median")
	if _, err := Load(); err == nil {
		t.Error("expected error for bad demand_agg")
	}

	t.Setenv("TARIFFCALC_DEMAND_AGG", "")
	t.Setenv("DATABASE_URL", "")
	if _, err := Load(); err == nil {
		t.Error("expected error for missing database url")
	}
}
