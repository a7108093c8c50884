package vectorstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"researchmind/internal/models"
)

func TestJSONFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	err = s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0}),
		record("p2", 0, []float32{0, 1}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	reopened, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 2 || stats.TotalPapers != 2 {
		t.Fatalf("unexpected stats after reopen: %+v", stats)
	}
	got, err := reopened.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].ID != "p2_chunk_0" || math.Abs(got[0].Score-1.0) > 1e-6 {
		t.Fatalf("unexpected top result: %s score=%f", got[0].ID, got[0].Score)
	}
}

func TestJSONFileStoreFailedBatchNotPersisted(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	err = s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0}),
		record("p1", 1, []float32{1, 0, 0}),
	})
	if err == nil {
		t.Fatal("expected dimension mismatch on upsert")
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p2", 0, []float32{0, 1})}); err != nil {
		t.Fatalf("upsert after failed batch: %v", err)
	}

	reopened, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats, err := reopened.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 1 || stats.TotalPapers != 1 {
		t.Fatalf("failed batch leaked to disk: %+v", stats)
	}
	got, err := reopened.Search(ctx, []float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if got[0].ID != "p2_chunk_0" {
		t.Fatalf("unexpected surviving record: %s", got[0].ID)
	}
}

func TestJSONFileStoreClearPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "store.json")

	s, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}

	reopened, err := OpenJSONFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	stats, _ := reopened.Stats(ctx)
	if stats.TotalChunks != 0 {
		t.Fatalf("expected empty store after clear, got %d chunks", stats.TotalChunks)
	}
}

func TestJSONFileStoreMissingFileStartsEmpty(t *testing.T) {
	s, err := OpenJSONFileStore(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	stats, _ := s.Stats(context.Background())
	if stats.TotalChunks != 0 {
		t.Fatalf("expected empty store, got %d chunks", stats.TotalChunks)
	}
}
