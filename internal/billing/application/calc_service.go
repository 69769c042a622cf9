// Package application wires the pure billing engine to its collaborators:
// tariff storage, meter readings and the calc-run store.
package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/minvoker/tariff-calculator/internal/billing"
	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	"github.com/minvoker/tariff-calculator/internal/metering"
	"github.com/minvoker/tariff-calculator/internal/observability/metrics"
	"github.com/minvoker/tariff-calculator/internal/tariff"
)

// ErrTariffVersionNotFound reports an unknown tariff version id.
var ErrTariffVersionNotFound = errors.New("calc service: tariff version not found")

const statusCompleted = "completed"

// CalcService runs and stores bill calculations.
type CalcService struct {
	tariffs  *postgres.TariffRepository
	readings *postgres.ReadingRepository
	runs     *postgres.CalcRunRepository
	opts     metering.Options
	logger   *log.Logger
}

// NewCalcService constructs a service.
func NewCalcService(
	tariffs *postgres.TariffRepository,
	readings *postgres.ReadingRepository,
	runs *postgres.CalcRunRepository,
	opts metering.Options,
	logger *log.Logger,
) (*CalcService, error) {
	if tariffs == nil {
		return nil, errors.New("calc service: nil tariff repo")
	}
	if readings == nil {
		return nil, errors.New("calc service: nil reading repo")
	}
	if runs == nil {
		return nil, errors.New("calc service: nil calc run repo")
	}
	return &CalcService{tariffs: tariffs, readings: readings, runs: runs, opts: opts, logger: logger}, nil
}

// RunOutcome is the result of one calculation request.
type RunOutcome struct {
	RunID           string
	CustomerID      string
	TariffVersionID string
	Checksum        string
	Reused          bool
	Period          billing.Period
	Result          *billing.CalcResult
}

// Run calculates a bill for (customer, tariff version, period). When the
// checksum and period match the latest stored run and force is false, the
// stored result is returned verbatim instead of recomputing.
func (s *CalcService) Run(ctx context.Context, customerID, tariffVersionID string, period billing.Period, force bool) (*RunOutcome, error) {
	started := time.Now()
	result := metrics.ResultSuccess
	defer func() {
		metrics.ObserveCalculation(result, time.Since(started))
	}()

	outcome, err := s.run(ctx, customerID, tariffVersionID, period, force)
	if err != nil {
		result = metrics.ResultError
		return nil, err
	}
	if outcome.Reused {
		result = metrics.ResultReused
	}
	return outcome, nil
}

func (s *CalcService) run(ctx context.Context, customerID, tariffVersionID string, period billing.Period, force bool) (*RunOutcome, error) {
	if customerID == "" {
		return nil, errors.New("calc service: empty customer id")
	}
	if !period.Valid() {
		return nil, billing.ErrInvalidPeriod
	}

	version, err := s.tariffs.Get(ctx, tariffVersionID)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, ErrTariffVersionNotFound
	}
	if err != nil {
		return nil, err
	}
	doc, err := tariff.ParseDocument(version.CanonicalJSON)
	if err != nil {
		return nil, err
	}

	readings, err := s.readings.ListForPeriod(ctx, customerID, period.Start, period.End)
	if err != nil {
		return nil, err
	}
	metrics.ObserveReadings(len(readings))

	sum := billing.Checksum(version.ID, version.CanonicalJSON, readings, period.Start, period.End)
	if !force {
		if stored := s.reusable(ctx, customerID, version.ID, sum, period); stored != nil {
			metrics.CountChecksumReuse()
			return stored, nil
		}
	}

	calc, err := billing.Calculate(doc, readings, period, s.opts)
	if err != nil {
		return nil, err
	}
	resultJSON, err := json.Marshal(calc)
	if err != nil {
		return nil, fmt.Errorf("calc service: encode result: %w", err)
	}
	rec := &postgres.CalcRunRecord{
		ID:              uuid.NewString(),
		CustomerID:      customerID,
		TariffVersionID: version.ID,
		Checksum:        sum,
		PeriodStart:     period.Start,
		PeriodEnd:       period.End,
		Status:          statusCompleted,
		ResultJSON:      resultJSON,
		CreatedAt:       time.Now().UTC(),
	}
	if err := s.runs.Insert(ctx, rec); err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Printf("calc run %s stored for customer=%s version=%s total=%.4f",
			rec.ID, customerID, version.ID, calc.TotalCost)
	}
	return &RunOutcome{
		RunID:           rec.ID,
		CustomerID:      customerID,
		TariffVersionID: version.ID,
		Checksum:        sum,
		Period:          period,
		Result:          calc,
	}, nil
}

// reusable returns the latest stored run when its checksum and period
// match; anything else (including lookup errors) means recompute.
func (s *CalcService) reusable(ctx context.Context, customerID, versionID, sum string, period billing.Period) *RunOutcome {
	last, err := s.runs.Latest(ctx, customerID, versionID)
	if err != nil || last == nil {
		return nil
	}
	if last.Checksum != sum || !last.PeriodStart.Equal(period.Start) || !last.PeriodEnd.Equal(period.End) {
		return nil
	}
	var calc billing.CalcResult
	if err := json.Unmarshal(last.ResultJSON, &calc); err != nil {
		if s.logger != nil {
			s.logger.Printf("calc run %s: stored result unreadable, recomputing: %v", last.ID, err)
		}
		return nil
	}
	return &RunOutcome{
		RunID:           last.ID,
		CustomerID:      customerID,
		TariffVersionID: versionID,
		Checksum:        sum,
		Reused:          true,
		Period:          billing.Period{Start: last.PeriodStart, End: last.PeriodEnd},
		Result:          &calc,
	}
}

// LatestBill returns the most recent stored run for the inputs, computing
// and storing one when none exists.
func (s *CalcService) LatestBill(ctx context.Context, customerID, tariffVersionID string, period billing.Period) (*RunOutcome, error) {
	last, err := s.runs.Latest(ctx, customerID, tariffVersionID)
	if err != nil && !errors.Is(err, postgres.ErrNotFound) {
		return nil, err
	}
	if last != nil {
		var calc billing.CalcResult
		if err := json.Unmarshal(last.ResultJSON, &calc); err == nil {
			return &RunOutcome{
				RunID:           last.ID,
				CustomerID:      customerID,
				TariffVersionID: tariffVersionID,
				Checksum:        last.Checksum,
				Reused:          true,
				Period:          billing.Period{Start: last.PeriodStart, End: last.PeriodEnd},
				Result:          &calc,
			}, nil
		}
	}
	return s.Run(ctx, customerID, tariffVersionID, period, false)
}

// GetRun loads a stored run with its decoded result.
func (s *CalcService) GetRun(ctx context.Context, runID string) (*RunOutcome, error) {
	rec, err := s.runs.Get(ctx, runID)
	if errors.Is(err, postgres.ErrNotFound) {
		return nil, postgres.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var calc billing.CalcResult
	if err := json.Unmarshal(rec.ResultJSON, &calc); err != nil {
		return nil, fmt.Errorf("calc service: decode stored result: %w", err)
	}
	return &RunOutcome{
		RunID:           rec.ID,
		CustomerID:      rec.CustomerID,
		TariffVersionID: rec.TariffVersionID,
		Checksum:        rec.Checksum,
		Reused:          true,
		Period:          billing.Period{Start: rec.PeriodStart, End: rec.PeriodEnd},
		Result:          &calc,
	}, nil
}
