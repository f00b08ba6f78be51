package shift

import (
	"context"
	"log"
	"strings"
	"time"

	"tokoledger/internal/cache"
	"tokoledger/internal/domain"
	"tokoledger/internal/store"
)

const currentShiftTTL = 30 * time.Second

// Manager owns the shift lifecycle: opening the drawer, recording
// expenses against the open shift, and closing with the drawer count.
type Manager struct {
	repo           store.Repository
	cache          cache.ShiftCache
	defaultStoreID string
}

func NewManager(repo store.Repository, shiftCache cache.ShiftCache, defaultStoreID string) *Manager {
	if shiftCache == nil {
		shiftCache = cache.NoopShiftCache{}
	}
	return &Manager{repo: repo, cache: shiftCache, defaultStoreID: strings.TrimSpace(defaultStoreID)}
}

func cacheKey(operatorID, storeID string) string {
	return "shift:current:" + operatorID + ":" + storeID
}

// ResolveStore falls back to the configured default store when the
// caller leaves the store blank.
func (m *Manager) ResolveStore(storeID string) string {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return m.defaultStoreID
	}
	return storeID
}

func (m *Manager) Open(ctx context.Context, req domain.ShiftOpenRequest) (*domain.Shift, error) {
	operatorID := strings.TrimSpace(req.OperatorID)
	storeID := m.ResolveStore(req.StoreID)
	if operatorID == "" || storeID == "" {
		return nil, store.ErrInvalidSale
	}
	if req.OpeningCents < 0 {
		return nil, store.ErrInvalidSale
	}

	shift, err := m.repo.CreateShift(ctx, domain.Shift{
		OperatorID:   operatorID,
		StoreID:      storeID,
		OpeningCents: req.OpeningCents,
		Notes:        strings.TrimSpace(req.Notes),
		OpenedAt:     time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, operatorID, storeID)
	return shift, nil
}

func (m *Manager) Close(ctx context.Context, req domain.ShiftCloseRequest) (*domain.Shift, error) {
	operatorID := strings.TrimSpace(req.OperatorID)
	storeID := m.ResolveStore(req.StoreID)
	if operatorID == "" || storeID == "" {
		return nil, store.ErrInvalidSale
	}
	if req.ClosingCents < 0 {
		return nil, store.ErrInvalidSale
	}

	shift, err := m.repo.CloseShift(ctx, operatorID, storeID, req.ClosingCents, strings.TrimSpace(req.Notes), time.Now().UTC())
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, operatorID, storeID)
	return shift, nil
}

// Current returns the operator's open shift, consulting the cache
// first. Cache failures fall through to the repository.
func (m *Manager) Current(ctx context.Context, operatorID, storeID string) (*domain.Shift, error) {
	operatorID = strings.TrimSpace(operatorID)
	storeID = m.ResolveStore(storeID)
	if operatorID == "" || storeID == "" {
		return nil, store.ErrInvalidSale
	}

	key := cacheKey(operatorID, storeID)
	if cached, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		return cached, nil
	} else if err != nil {
		log.Printf("[shift] WARN: cache get failed for %s: %v", key, err)
	}

	shift, err := m.repo.GetOpenShift(ctx, operatorID, storeID)
	if err != nil {
		return nil, err
	}
	if err := m.cache.Set(ctx, key, shift, currentShiftTTL); err != nil {
		log.Printf("[shift] WARN: cache set failed for %s: %v", key, err)
	}
	return shift, nil
}

func (m *Manager) RecordExpense(ctx context.Context, req domain.ExpenseRequest) (*domain.Expense, error) {
	operatorID := strings.TrimSpace(req.OperatorID)
	storeID := m.ResolveStore(req.StoreID)
	if operatorID == "" || storeID == "" {
		return nil, store.ErrInvalidSale
	}
	if req.AmountCents <= 0 {
		return nil, store.ErrInvalidSale
	}

	shift, err := m.repo.GetOpenShift(ctx, operatorID, storeID)
	if err != nil {
		return nil, err
	}
	expense, err := m.repo.RecordExpense(ctx, domain.Expense{
		ShiftID:     shift.ID,
		AmountCents: req.AmountCents,
		Note:        strings.TrimSpace(req.Note),
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	m.invalidate(ctx, operatorID, storeID)
	return expense, nil
}

// Invalidate drops the cached snapshot after a write that changed the
// shift's aggregates.
func (m *Manager) Invalidate(ctx context.Context, operatorID, storeID string) {
	m.invalidate(ctx, operatorID, storeID)
}

func (m *Manager) invalidate(ctx context.Context, operatorID, storeID string) {
	key := cacheKey(operatorID, storeID)
	if err := m.cache.Delete(ctx, key); err != nil {
		log.Printf("[shift] WARN: cache delete failed for %s: %v", key, err)
	}
}
