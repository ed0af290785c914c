package store

import (
	"context"
	"sync"

	"github.com/vidscribe/vidscribe/internal/model"
)

// Ensure MemoryStore implements model.JobStore.
var _ model.JobStore = (*MemoryStore)(nil)

// MemoryStore keeps job records in a map. Used in tests and for ephemeral
// runs where persistence across restarts is not needed.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]model.JobRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]model.JobRecord)}
}

func (s *MemoryStore) Get(ctx context.Context, jobID string) (model.JobRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[jobID]
	if !ok {
		return model.JobRecord{}, model.ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Set(ctx context.Context, jobID string, rec model.JobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[jobID] = rec
	return nil
}

func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.records))
	for k := range s.records {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *MemoryStore) Close() error { return nil }
