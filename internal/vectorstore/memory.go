package vectorstore

import (
	"context"
	"sync"

	"researchmind/internal/models"
)

// MemoryStore keeps the collection in process memory only. Used by tests
// and as a scratch backend.
type MemoryStore struct {
	mu   sync.RWMutex
	coll *collection
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{coll: newCollection()}
}

func (s *MemoryStore) Upsert(ctx context.Context, records []models.StoredRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.coll.upsert(records)
}

func (s *MemoryStore) Search(ctx context.Context, query []float32, topK int) ([]ScoredRecord, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.search(query, topK)
}

func (s *MemoryStore) Stats(ctx context.Context) (Stats, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.stats(), nil
}

func (s *MemoryStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll.clear()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
