// Package config loads service configuration from yaml and environment.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/minvoker/tariff-calculator/internal/metering"
)

// Config defines tariff calculator configuration.
type Config struct {
	ListenAddr          string `yaml:"listen_addr"`
	DatabaseURL         string `yaml:"database_url"`
	TimeZone            string `yaml:"time_zone"`
	DemandAgg           string `yaml:"demand_agg"`
	DemandWindowMinutes int    `yaml:"demand_window_minutes"`
}

// Load builds configuration from defaults, an optional yaml file named by
// TARIFFCALC_CONFIG, then environment overrides.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:          ":8080",
		TimeZone:            "Australia/Melbourne",
		DemandAgg:           string(metering.AggMax),
		DemandWindowMinutes: 30,
	}

	if path := os.Getenv("TARIFFCALC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	cfg.ListenAddr = getenvDefault("TARIFFCALC_LISTEN_ADDR", cfg.ListenAddr)
	cfg.DatabaseURL = getenvDefault("DATABASE_URL", cfg.DatabaseURL)
	cfg.TimeZone = getenvDefault("TARIFFCALC_TIME_ZONE", cfg.TimeZone)
	cfg.DemandAgg = getenvDefault("TARIFFCALC_DEMAND_AGG", cfg.DemandAgg)
	cfg.DemandWindowMinutes = getenvIntDefault("TARIFFCALC_DEMAND_WINDOW_MINUTES", cfg.DemandWindowMinutes)

	if cfg.DatabaseURL == "" {
		return cfg, errors.New("config: database url required")
	}
	if !metering.Agg(cfg.DemandAgg).Valid() {
		return cfg, errors.New("config: demand_agg must be max or mean")
	}
	if cfg.DemandWindowMinutes < 1 {
		return cfg, errors.New("config: demand window must be at least one minute")
	}
	if _, err := time.LoadLocation(cfg.TimeZone); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Location resolves the configured time zone.
func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.TimeZone)
}

// MeteringOptions maps configuration onto aggregation options.
func (c Config) MeteringOptions() metering.Options {
	return metering.Options{
		TimeZone:     c.TimeZone,
		DemandWindow: time.Duration(c.DemandWindowMinutes) * time.Minute,
		DemandAgg:    metering.Agg(c.DemandAgg),
	}
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
