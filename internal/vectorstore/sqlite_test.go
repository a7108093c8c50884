package vectorstore

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"researchmind/internal/models"
)

func openTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "store.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStoreUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	err := s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0, 0}),
		record("p1", 1, []float32{0, 1, 0}),
		record("p2", 0, []float32{0.7, 0.7, 0}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 || got[0].ID != "p1_chunk_1" {
		t.Fatalf("unexpected results: %+v", got)
	}
	if math.Abs(got[0].Score-1.0) > 1e-6 {
		t.Fatalf("expected score ~1.0, got %f", got[0].Score)
	}
}

func TestSQLiteStoreUpsertReplaces(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{0, 1})}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 1 || stats.TotalPapers != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestSQLiteStoreDimensionGuard(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p2", 0, []float32{1, 0})}); err == nil {
		t.Fatal("expected dimension mismatch on upsert")
	}
}

func TestSQLiteStoreClear(t *testing.T) {
	ctx := context.Background()
	s := openTestSQLite(t)

	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalChunks != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
}
