package offline

import (
	"context"
	"errors"

	"tokoledger/internal/domain"
)

var ErrEntryNotFound = errors.New("offline entry not found")

// State keys are versioned so a future layout change can migrate old
// rows instead of misreading them.
const (
	stateKeyEnabled  = "offline.v1.enabled"
	stateKeyLastSync = "offline.v1.last_sync"
)

// QueueStore persists captured sale requests and a small key-value
// state bag. The queue survives process restarts; captured entries are
// removed only after the ledger has confirmed them.
type QueueStore interface {
	Append(ctx context.Context, entry domain.OfflineEntry) error
	List(ctx context.Context) ([]domain.OfflineEntry, error)
	Remove(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	// Clear drops every queued entry and the state bag, so the offline
	// flag and last-sync marker reset with the queue.
	Clear(ctx context.Context) error
	GetState(ctx context.Context, key string) (string, bool, error)
	SetState(ctx context.Context, key, value string) error
}
