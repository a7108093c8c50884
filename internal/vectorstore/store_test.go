package vectorstore

import (
	"context"
	"math"
	"testing"

	"researchmind/internal/models"
)

func record(paperID string, idx int, embedding []float32) models.StoredRecord {
	return models.StoredRecord{
		ID:        RecordID(paperID, idx),
		Text:      "chunk text",
		Embedding: embedding,
		Metadata:  models.ChunkMetadata{PaperID: paperID, ChunkIndex: idx},
	}
}

func TestMemoryStoreSearchRanksExactMatchFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0, 0}),
		record("p1", 1, []float32{0, 1, 0}),
		record("p2", 0, []float32{0.5, 0.5, 0}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.Search(ctx, []float32{0, 1, 0}, 2)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got[0].ID != "p1_chunk_1" {
		t.Fatalf("expected exact match first, got %s", got[0].ID)
	}
	if math.Abs(got[0].Score-1.0) > 1e-6 {
		t.Fatalf("expected score ~1.0, got %f", got[0].Score)
	}
	if got[1].Score > got[0].Score {
		t.Fatal("results not in descending score order")
	}
}

func TestMemoryStoreUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{0, 1, 0})}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 1 {
		t.Fatalf("expected 1 chunk after re-upsert, got %d", stats.TotalChunks)
	}
	got, err := s.Search(ctx, []float32{0, 1, 0}, 1)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if math.Abs(got[0].Score-1.0) > 1e-6 {
		t.Fatalf("expected replaced embedding, score %f", got[0].Score)
	}
}

func TestMemoryStoreSearchEmpty(t *testing.T) {
	s := NewMemoryStore()
	got, err := s.Search(context.Background(), []float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}

func TestMemoryStoreDimensionGuards(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if err := s.Upsert(ctx, []models.StoredRecord{record("p1", 0, []float32{1, 0, 0})}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s.Upsert(ctx, []models.StoredRecord{record("p2", 0, []float32{1, 0})}); err == nil {
		t.Fatal("expected dimension mismatch on upsert")
	}
	if _, err := s.Search(ctx, []float32{1, 0}, 1); err == nil {
		t.Fatal("expected dimension mismatch on search")
	}
}

func TestMemoryStoreFailedBatchAppliesNothing(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0, 0}),
		record("p1", 1, []float32{1, 0}),
	})
	if err == nil {
		t.Fatal("expected dimension mismatch on upsert")
	}
	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalChunks != 0 {
		t.Fatalf("failed batch left %d records applied, want 0", stats.TotalChunks)
	}

	// The rejected batch must not fix the store's dimensionality either.
	if err := s.Upsert(ctx, []models.StoredRecord{record("p2", 0, []float32{0, 1})}); err != nil {
		t.Fatalf("upsert after failed batch: %v", err)
	}
}

func TestMemoryStoreStatsAndClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	err := s.Upsert(ctx, []models.StoredRecord{
		record("p1", 0, []float32{1, 0}),
		record("p1", 1, []float32{0, 1}),
		record("p2", 0, []float32{1, 1}),
	})
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	stats, _ := s.Stats(ctx)
	if stats.TotalChunks != 3 || stats.TotalPapers != 2 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	stats, _ = s.Stats(ctx)
	if stats.TotalChunks != 0 || stats.TotalPapers != 0 {
		t.Fatalf("expected empty stats after clear: %+v", stats)
	}
}

func TestRecordID(t *testing.T) {
	if got := RecordID("arxiv_2401.1234", 7); got != "arxiv_2401.1234_chunk_7" {
		t.Fatalf("unexpected record id: %s", got)
	}
}
