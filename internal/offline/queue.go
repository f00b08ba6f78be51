package offline

import (
	"context"
	"errors"
	"log"
	"strconv"
	"time"

	"github.com/google/uuid"

	"tokoledger/internal/domain"
	"tokoledger/internal/metrics"
)

var (
	ErrOfflineDisabled = errors.New("offline mode disabled")
	ErrOfflineEnabled  = errors.New("offline mode enabled")
)

// SaleCreator is the slice of the ledger the queue replays through.
type SaleCreator interface {
	CreateSale(ctx context.Context, req domain.SaleRequest) (*domain.SaleReceipt, error)
}

// Queue captures sales while the terminal is offline and replays them
// through the ledger once connectivity returns. Each entry's ID doubles
// as the ledger idempotency key, so a sync interrupted after a sale
// landed but before the entry was removed does not double-book on the
// next pass.
type Queue struct {
	store  QueueStore
	ledger SaleCreator
}

func NewQueue(store QueueStore, creator SaleCreator) *Queue {
	return &Queue{store: store, ledger: creator}
}

func (q *Queue) Enabled(ctx context.Context) (bool, error) {
	value, ok, err := q.store.GetState(ctx, stateKeyEnabled)
	if err != nil {
		return false, err
	}
	return ok && value == "true", nil
}

func (q *Queue) SetOfflineMode(ctx context.Context, enabled bool) error {
	return q.store.SetState(ctx, stateKeyEnabled, strconv.FormatBool(enabled))
}

// ToggleOfflineMode flips the mode and returns the new value.
func (q *Queue) ToggleOfflineMode(ctx context.Context) (bool, error) {
	enabled, err := q.Enabled(ctx)
	if err != nil {
		return false, err
	}
	if err := q.SetOfflineMode(ctx, !enabled); err != nil {
		return false, err
	}
	return !enabled, nil
}

// Capture stores a sale request for later replay. The entry is only
// accepted while offline mode is on; an online terminal should record
// the sale directly.
func (q *Queue) Capture(ctx context.Context, req domain.SaleRequest) (*domain.OfflineEntry, error) {
	enabled, err := q.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, ErrOfflineDisabled
	}
	entry := domain.OfflineEntry{
		ID:         uuid.NewString(),
		Request:    req,
		CapturedAt: time.Now().UTC(),
	}
	if err := q.store.Append(ctx, entry); err != nil {
		return nil, err
	}
	q.updatePendingGauge(ctx)
	return &entry, nil
}

// Sync replays every queued entry through the ledger. It refuses to
// run while offline mode is still on. An entry is removed only after
// the ledger confirms the sale; failures stay queued for the next
// sync.
func (q *Queue) Sync(ctx context.Context) (*domain.SyncReport, error) {
	enabled, err := q.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	if enabled {
		return nil, ErrOfflineEnabled
	}

	entries, err := q.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	report := &domain.SyncReport{
		Attempted: len(entries),
		SyncedAt:  now.Format(time.RFC3339),
		Results:   make([]domain.SyncResult, 0, len(entries)),
	}
	for _, entry := range entries {
		req := entry.Request
		req.IdempotencyKey = entry.ID

		receipt, err := q.ledger.CreateSale(ctx, req)
		if err != nil {
			report.Failed++
			report.Results = append(report.Results, domain.SyncResult{
				EntryID: entry.ID,
				Status:  domain.SyncStatusFailed,
				Reason:  err.Error(),
			})
			log.Printf("[offline] WARN: replay of entry %s failed: %v", entry.ID, err)
			continue
		}

		status := domain.SyncStatusSynced
		if receipt.Duplicate {
			status = domain.SyncStatusDuplicate
			report.Duplicate++
		} else {
			report.Synced++
		}
		if err := q.store.Remove(ctx, entry.ID); err != nil && !errors.Is(err, ErrEntryNotFound) {
			log.Printf("[offline] WARN: failed to remove synced entry %s: %v", entry.ID, err)
		}
		report.Results = append(report.Results, domain.SyncResult{
			EntryID:       entry.ID,
			Status:        status,
			InvoiceNumber: receipt.InvoiceNumber,
		})
	}

	if err := q.store.SetState(ctx, stateKeyLastSync, now.Format(time.RFC3339Nano)); err != nil {
		log.Printf("[offline] WARN: failed to record sync time: %v", err)
	}
	q.updatePendingGauge(ctx)
	return report, nil
}

func (q *Queue) Clear(ctx context.Context) error {
	if err := q.store.Clear(ctx); err != nil {
		return err
	}
	q.updatePendingGauge(ctx)
	return nil
}

func (q *Queue) Status(ctx context.Context) (*domain.OfflineStatus, error) {
	enabled, err := q.Enabled(ctx)
	if err != nil {
		return nil, err
	}
	count, err := q.store.Count(ctx)
	if err != nil {
		return nil, err
	}
	status := &domain.OfflineStatus{Enabled: enabled, PendingCount: count}
	if value, ok, err := q.store.GetState(ctx, stateKeyLastSync); err == nil && ok {
		if at, parseErr := time.Parse(time.RFC3339Nano, value); parseErr == nil {
			status.LastSyncAt = &at
		}
	}
	return status, nil
}

func (q *Queue) updatePendingGauge(ctx context.Context) {
	count, err := q.store.Count(ctx)
	if err != nil {
		return
	}
	metrics.OfflinePending.Set(float64(count))
}
