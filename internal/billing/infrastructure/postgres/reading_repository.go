package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/minvoker/tariff-calculator/internal/metering"
)

const defaultMeterReadingsTable = "meter_readings"

// ReadingRepository loads and stores interval meter readings.
type ReadingRepository struct {
	db    *sql.DB
	table string
}

// ReadingRepositoryOption configures the repository.
type ReadingRepositoryOption func(*ReadingRepository)

// WithMeterReadingsTable overrides the default table name.
func WithMeterReadingsTable(table string) ReadingRepositoryOption {
	return func(r *ReadingRepository) {
		if table != "" {
			r.table = table
		}
	}
}

// NewReadingRepository constructs a repository with defaults.
func NewReadingRepository(db *sql.DB, opts ...ReadingRepositoryOption) *ReadingRepository {
	repo := &ReadingRepository{db: db, table: defaultMeterReadingsTable}
	for _, opt := range opts {
		opt(repo)
	}
	return repo
}

// ListForPeriod returns a customer's readings in [start, end), ordered by
// timestamp as the checksum gate requires.
func (r *ReadingRepository) ListForPeriod(ctx context.Context, customerID string, start, end time.Time) ([]metering.Reading, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("reading repo: nil db")
	}
	if customerID == "" {
		return nil, errors.New("reading repo: empty customer id")
	}
	query := fmt.Sprintf(`
SELECT read_at, kwh_used, kva, kw
FROM %s
WHERE customer_id = $1 AND read_at >= $2 AND read_at < $3
ORDER BY read_at ASC`, r.table)

	rows, err := r.db.QueryContext(ctx, query, customerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var readings []metering.Reading
	for rows.Next() {
		var reading metering.Reading
		var kva, kw sql.NullFloat64
		if err := rows.Scan(&reading.Timestamp, &reading.KWh, &kva, &kw); err != nil {
			return nil, err
		}
		if kva.Valid {
			v := kva.Float64
			reading.KVA = &v
		}
		if kw.Valid {
			v := kw.Float64
			reading.KW = &v
		}
		readings = append(readings, reading)
	}
	return readings, rows.Err()
}

// Insert stores a batch of readings for a customer.
func (r *ReadingRepository) Insert(ctx context.Context, customerID string, readings []metering.Reading) error {
	if r == nil || r.db == nil {
		return errors.New("reading repo: nil db")
	}
	if customerID == "" {
		return errors.New("reading repo: empty customer id")
	}
	query := fmt.Sprintf(`
INSERT INTO %s (customer_id, read_at, kwh_used, kva, kw)
VALUES ($1, $2, $3, $4, $5)`, r.table)

	for _, reading := range readings {
		var kva, kw sql.NullFloat64
		if reading.KVA != nil {
			kva = sql.NullFloat64{Float64: *reading.KVA, Valid: true}
		}
		if reading.KW != nil {
			kw = sql.NullFloat64{Float64: *reading.KW, Valid: true}
		}
		if _, err := r.db.ExecContext(ctx, query, customerID, reading.Timestamp, reading.KWh, kva, kw); err != nil {
			return err
		}
	}
	return nil
}
