package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"researchmind/internal/models"
	"researchmind/internal/util"
)

// jsonDocument is the durable representation: one structured document
// holding the ordered record collection, no secondary index files.
type jsonDocument struct {
	Chunks []models.StoredRecord `json:"chunks"`
}

// JSONFileStore persists the whole collection as a single JSON document
// after every mutating batch. Writes go through a temp file and rename, so
// a completed write is either the old full state or the new full state.
type JSONFileStore struct {
	mu   sync.RWMutex
	path string
	coll *collection
}

// OpenJSONFileStore loads the document at path, or starts empty when the
// file does not exist yet.
func OpenJSONFileStore(path string) (*JSONFileStore, error) {
	s := &JSONFileStore{path: path, coll: newCollection()}

	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read vector store %s: %w", path, err)
	}
	var doc jsonDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode vector store %s: %w", path, err)
	}
	if err := s.coll.load(doc.Chunks); err != nil {
		return nil, fmt.Errorf("load vector store %s: %w", path, err)
	}
	return s, nil
}

func (s *JSONFileStore) Upsert(ctx context.Context, records []models.StoredRecord) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.coll.upsert(records); err != nil {
		return err
	}
	return s.persist()
}

func (s *JSONFileStore) Search(ctx context.Context, query []float32, topK int) ([]ScoredRecord, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.search(query, topK)
}

func (s *JSONFileStore) Stats(ctx context.Context) (Stats, error) {
	_ = ctx
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.coll.stats(), nil
}

func (s *JSONFileStore) Clear(ctx context.Context) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.coll.clear()
	return s.persist()
}

func (s *JSONFileStore) Close() error { return nil }

func (s *JSONFileStore) persist() error {
	doc := jsonDocument{Chunks: s.coll.records}
	if doc.Chunks == nil {
		doc.Chunks = []models.StoredRecord{}
	}
	if err := util.WriteJSONAtomic(s.path, doc); err != nil {
		return fmt.Errorf("persist vector store: %w", err)
	}
	return nil
}
