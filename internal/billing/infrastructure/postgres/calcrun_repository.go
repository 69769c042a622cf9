package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultCalcRunsTable = "calc_runs"

// CalcRunRecord is one stored calculation outcome. Rows are append-only:
// at most one authoritative row per (customer, tariff version) is added
// when the checksum changes.
type CalcRunRecord struct {
	ID              string
	CustomerID      string
	TariffVersionID string
	Checksum        string
	PeriodStart     time.Time
	PeriodEnd       time.Time
	Status          string
	ResultJSON      []byte
	CreatedAt       time.Time
}

// CalcRunRepository stores calculation runs.
type CalcRunRepository struct {
	db    *sql.DB
	table string
}

// CalcRunRepositoryOption configures the repository.
type CalcRunRepositoryOption func(*CalcRunRepository)

// WithCalcRunsTable overrides the default table name.
func WithCalcRunsTable(table string) CalcRunRepositoryOption {
	return func(r *CalcRunRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewCalcRunRepository constructs a repository with defaults.
func NewCalcRunRepository(db *sql.DB, opts ...CalcRunRepositoryOption) *CalcRunRepository {
	repo := &CalcRunRepository{db: db, table: defaultCalcRunsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Latest returns the most recent run for (customer, tariff version), or
// ErrNotFound when none exists.
func (r *CalcRunRepository) Latest(ctx context.Context, customerID, tariffVersionID string) (*CalcRunRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("calc run repo: nil db")
	}
	if customerID == "" || tariffVersionID == "" {
		return nil, errors.New("calc run repo: empty key")
	}
	query := fmt.Sprintf(`
SELECT id, customer_id, tariff_version_id, checksum, period_start, period_end, status, result_json, created_at
FROM %s
WHERE customer_id = $1 AND tariff_version_id = $2
ORDER BY created_at DESC
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, customerID, tariffVersionID))
}

// Get loads a run by id.
func (r *CalcRunRepository) Get(ctx context.Context, id string) (*CalcRunRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("calc run repo: nil db")
	}
	if id == "" {
		return nil, errors.New("calc run repo: empty run id")
	}
	query := fmt.Sprintf(`
SELECT id, customer_id, tariff_version_id, checksum, period_start, period_end, status, result_json, created_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// Insert appends a run. Callers serialize writes per (customer, tariff
// version) or accept an occasional duplicate row as benign.
func (r *CalcRunRepository) Insert(ctx context.Context, rec *CalcRunRecord) error {
	if r == nil || r.db == nil {
		return errors.New("calc run repo: nil db")
	}
	if rec == nil || rec.ID == "" {
		return errors.New("calc run repo: empty run id")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, customer_id, tariff_version_id, checksum, period_start, period_end, status, result_json, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`, r.table)

	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.CustomerID, rec.TariffVersionID, rec.Checksum,
		rec.PeriodStart, rec.PeriodEnd, rec.Status, rec.ResultJSON, createdAt)
	return err
}

func (r *CalcRunRepository) scanOne(row *sql.Row) (*CalcRunRecord, error) {
	var rec CalcRunRecord
	err := row.Scan(&rec.ID, &rec.CustomerID, &rec.TariffVersionID, &rec.Checksum,
		&rec.PeriodStart, &rec.PeriodEnd, &rec.Status, &rec.ResultJSON, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
