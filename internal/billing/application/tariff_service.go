package application

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/minvoker/tariff-calculator/internal/billing/infrastructure/postgres"
	"github.com/minvoker/tariff-calculator/internal/tariff"
)

// TariffService validates and stores tariff versions.
type TariffService struct {
	tariffs *postgres.TariffRepository
}

// NewTariffService constructs a service.
func NewTariffService(tariffs *postgres.TariffRepository) (*TariffService, error) {
	if tariffs == nil {
		return nil, errors.New("tariff service: nil repo")
	}
	return &TariffService{tariffs: tariffs}, nil
}

// CreateVersion validates the raw document and appends it as a new version
// of plan. The stored bytes are the canonical re-marshal of the typed
// document, so checksums are stable across uploads of equivalent JSON.
func (s *TariffService) CreateVersion(ctx context.Context, plan string, version int, rawDocument []byte, effectiveFrom time.Time, effectiveTo *time.Time) (*postgres.TariffVersionRecord, error) {
	if plan == "" {
		return nil, errors.New("tariff service: empty plan")
	}
	if version < 1 {
		return nil, errors.New("tariff service: version must be positive")
	}
	doc, err := tariff.ParseDocument(rawDocument)
	if err != nil {
		return nil, err
	}
	canonical, err := doc.CanonicalJSON()
	if err != nil {
		return nil, err
	}
	rec := &postgres.TariffVersionRecord{
		ID:            uuid.NewString(),
		Plan:          plan,
		Version:       version,
		CanonicalJSON: canonical,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   effectiveTo,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.tariffs.Create(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// Get loads a tariff version by id.
func (s *TariffService) Get(ctx context.Context, id string) (*postgres.TariffVersionRecord, error) {
	return s.tariffs.Get(ctx, id)
}

// LatestForPlan loads the highest stored version of a plan.
func (s *TariffService) LatestForPlan(ctx context.Context, plan string) (*postgres.TariffVersionRecord, error) {
	return s.tariffs.LatestForPlan(ctx, plan)
}
