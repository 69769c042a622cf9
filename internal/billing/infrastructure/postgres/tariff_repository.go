// Package postgres persists tariff versions, meter readings and
// calculation runs. The engine never touches these repositories directly;
// they feed the application service.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const defaultTariffVersionsTable = "tariff_versions"

// ErrNotFound reports a missing row for any repository in this package.
var ErrNotFound = errors.New("postgres: not found")

// TariffVersionRecord is one immutable, versioned tariff document.
type TariffVersionRecord struct {
	ID            string
	Plan          string
	Version       int
	CanonicalJSON []byte
	EffectiveFrom time.Time
	EffectiveTo   *time.Time
	CreatedAt     time.Time
}

// TariffRepository stores tariff versions. Versions are append-only: a new
// version supersedes, rows are never updated.
type TariffRepository struct {
	db    *sql.DB
	table string
}

// TariffRepositoryOption configures the repository.
type TariffRepositoryOption func(*TariffRepository)

// WithTariffVersionsTable overrides the default table name.
func WithTariffVersionsTable(table string) TariffRepositoryOption {
	return func(r *TariffRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewTariffRepository constructs a repository with defaults.
func NewTariffRepository(db *sql.DB, opts ...TariffRepositoryOption) *TariffRepository {
	repo := &TariffRepository{db: db, table: defaultTariffVersionsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// Create appends a tariff version.
func (r *TariffRepository) Create(ctx context.Context, rec *TariffVersionRecord) error {
	if r == nil || r.db == nil {
		return errors.New("tariff repo: nil db")
	}
	if rec == nil || rec.ID == "" {
		return errors.New("tariff repo: empty version id")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (id, plan, version, canonical_json, effective_from, effective_to, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`, r.table)

	var effectiveTo sql.NullTime
	if rec.EffectiveTo != nil {
		effectiveTo = sql.NullTime{Time: *rec.EffectiveTo, Valid: true}
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Plan, rec.Version, rec.CanonicalJSON, rec.EffectiveFrom, effectiveTo, createdAt)
	return err
}

// Get loads a tariff version by id.
func (r *TariffRepository) Get(ctx context.Context, id string) (*TariffVersionRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	if id == "" {
		return nil, errors.New("tariff repo: empty version id")
	}
	query := fmt.Sprintf(`
SELECT id, plan, version, canonical_json, effective_from, effective_to, created_at
FROM %s
WHERE id = $1
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// LatestForPlan loads the highest version of a plan.
func (r *TariffRepository) LatestForPlan(ctx context.Context, plan string) (*TariffVersionRecord, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("tariff repo: nil db")
	}
	if plan == "" {
		return nil, errors.New("tariff repo: empty plan")
	}
	query := fmt.Sprintf(`
SELECT id, plan, version, canonical_json, effective_from, effective_to, created_at
FROM %s
WHERE plan = $1
ORDER BY version DESC
LIMIT 1`, r.table)

	return r.scanOne(r.db.QueryRowContext(ctx, query, plan))
}

func (r *TariffRepository) scanOne(row *sql.Row) (*TariffVersionRecord, error) {
	var rec TariffVersionRecord
	var effectiveTo sql.NullTime
	err := row.Scan(&rec.ID, &rec.Plan, &rec.Version, &rec.CanonicalJSON,
		&rec.EffectiveFrom, &effectiveTo, &rec.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if effectiveTo.Valid {
		rec.EffectiveTo = &effectiveTo.Time
	}
	return &rec, nil
}
