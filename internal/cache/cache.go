package cache

import (
	"context"
	"time"

	"warungpos/backend/internal/domain"
)

// EligibilityCache holds recently computed promotion eligibility
// results keyed by cart signature. The calculator itself stays pure;
// caching only short-circuits identical evaluations of an unchanged
// cart.
type EligibilityCache interface {
	Get(ctx context.Context, key string) (*domain.EligibilityResponse, bool, error)
	Set(ctx context.Context, key string, value *domain.EligibilityResponse, ttl time.Duration) error
}

type NoopEligibilityCache struct{}

func (NoopEligibilityCache) Get(_ context.Context, _ string) (*domain.EligibilityResponse, bool, error) {
	return nil, false, nil
}

func (NoopEligibilityCache) Set(_ context.Context, _ string, _ *domain.EligibilityResponse, _ time.Duration) error {
	return nil
}
