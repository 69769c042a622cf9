package postgres

import (
	"context"
	"database/sql"
	"errors"
)

// schemaSQL creates the tables the repositories expect. Deployments manage
// migrations themselves; integration tests call EnsureSchema directly.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS tariff_versions (
    id             TEXT PRIMARY KEY,
    plan           TEXT NOT NULL,
    version        INTEGER NOT NULL,
    canonical_json JSONB NOT NULL,
    effective_from TIMESTAMPTZ NOT NULL,
    effective_to   TIMESTAMPTZ,
    created_at     TIMESTAMPTZ NOT NULL,
    UNIQUE (plan, version)
);

CREATE TABLE IF NOT EXISTS meter_readings (
    id          BIGSERIAL PRIMARY KEY,
    customer_id TEXT NOT NULL,
    read_at     TIMESTAMPTZ NOT NULL,
    kwh_used    DOUBLE PRECISION NOT NULL,
    kva         DOUBLE PRECISION,
    kw          DOUBLE PRECISION
);

CREATE INDEX IF NOT EXISTS meter_readings_customer_read_at
    ON meter_readings (customer_id, read_at);

CREATE TABLE IF NOT EXISTS calc_runs (
    id                TEXT PRIMARY KEY,
    customer_id       TEXT NOT NULL,
    tariff_version_id TEXT NOT NULL REFERENCES tariff_versions (id),
    checksum          TEXT NOT NULL,
    period_start      TIMESTAMPTZ NOT NULL,
    period_end        TIMESTAMPTZ NOT NULL,
    status            TEXT NOT NULL,
    result_json       JSONB NOT NULL,
    created_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS calc_runs_customer_version_created
    ON calc_runs (customer_id, tariff_version_id, created_at DESC);
`

// EnsureSchema creates missing tables.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return errors.New("postgres: nil db")
	}
	_, err := db.ExecContext(ctx, schemaSQL)
	return err
}
