// Package vectorstore is the durable keyed collection of embedded chunks.
// Backends implement brute-force cosine search over the whole collection;
// the Store interface keeps that swappable for an indexed structure later.
package vectorstore

import (
	"context"
	"fmt"

	"researchmind/internal/models"
)

type Stats struct {
	TotalChunks int `json:"totalChunks"`
	TotalPapers int `json:"totalPapers"`
}

type ScoredRecord struct {
	models.StoredRecord
	Score float64 `json:"score"`
}

// Store is a single-writer collection. Upsert replaces records sharing an
// ID rather than duplicating them; Search returns up to topK records by
// descending cosine similarity with no score threshold.
type Store interface {
	Upsert(ctx context.Context, records []models.StoredRecord) error
	Search(ctx context.Context, query []float32, topK int) ([]ScoredRecord, error)
	Stats(ctx context.Context) (Stats, error)
	Clear(ctx context.Context) error
	Close() error
}

// RecordID builds the dedup key for a paper chunk.
func RecordID(paperID string, chunkIndex int) string {
	return fmt.Sprintf("%s_chunk_%d", paperID, chunkIndex)
}

// RecordsFromEmbedded converts embedded chunks into persisted records.
func RecordsFromEmbedded(chunks []models.EmbeddedChunk) []models.StoredRecord {
	out := make([]models.StoredRecord, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, models.StoredRecord{
			ID:        RecordID(c.Metadata.PaperID, c.Metadata.ChunkIndex),
			Text:      c.Text,
			Embedding: c.Embedding,
			Metadata:  c.Metadata,
		})
	}
	return out
}
