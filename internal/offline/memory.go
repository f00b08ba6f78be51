package offline

import (
	"context"
	"slices"
	"sync"

	"tokoledger/internal/domain"
)

// MemoryStore is an in-process QueueStore used by tests and by
// deployments that do not need the queue to survive restarts.
type MemoryStore struct {
	mu      sync.Mutex
	entries []domain.OfflineEntry
	state   map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: map[string]string{}}
}

func (s *MemoryStore) Append(ctx context.Context, entry domain.OfflineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *MemoryStore) List(ctx context.Context) ([]domain.OfflineEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.OfflineEntry, len(s.entries))
	copy(out, s.entries)
	return out, nil
}

func (s *MemoryStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := slices.IndexFunc(s.entries, func(e domain.OfflineEntry) bool {
		return e.ID == id
	})
	if idx < 0 {
		return ErrEntryNotFound
	}
	s.entries = append(s.entries[:idx], s.entries[idx+1:]...)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.state = map[string]string{}
	return nil
}

func (s *MemoryStore) GetState(ctx context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.state[key]
	return value, ok, nil
}

func (s *MemoryStore) SetState(ctx context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state[key] = value
	return nil
}
