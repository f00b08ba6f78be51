package cache

import (
	"context"
	"time"

	"tokoledger/internal/domain"
)

// ShiftCache holds a snapshot of an operator's current open shift so
// the read path can skip a repository round trip.
type ShiftCache interface {
	Get(ctx context.Context, key string) (*domain.Shift, bool, error)
	Set(ctx context.Context, key string, value *domain.Shift, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

type NoopShiftCache struct{}

func (NoopShiftCache) Get(_ context.Context, _ string) (*domain.Shift, bool, error) {
	return nil, false, nil
}

func (NoopShiftCache) Set(_ context.Context, _ string, _ *domain.Shift, _ time.Duration) error {
	return nil
}

func (NoopShiftCache) Delete(_ context.Context, _ string) error {
	return nil
}
