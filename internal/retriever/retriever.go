// Package retriever embeds a question and returns the top-K most similar
// stored chunks, reshaped with source provenance.
package retriever

import (
	"context"
	"fmt"

	"researchmind/internal/embed"
	"researchmind/internal/models"
	"researchmind/internal/vectorstore"
)

const DefaultTopK = 3

type Retriever struct {
	embedder *embed.Batcher
	store    vectorstore.Store
}

func New(embedder *embed.Batcher, store vectorstore.Store) *Retriever {
	return &Retriever{embedder: embedder, store: store}
}

// Retrieve returns up to topK chunks ranked by descending cosine score.
// An empty store yields an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, question string, topK int) ([]models.RetrievedChunk, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}

	stats, err := r.store.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("read store stats: %w", err)
	}
	if stats.TotalChunks == 0 {
		return nil, nil
	}

	queryVec, err := r.embedder.EmbedQuery(ctx, question)
	if err != nil {
		return nil, err
	}
	results, err := r.store.Search(ctx, queryVec, topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}

	out := make([]models.RetrievedChunk, 0, len(results))
	for i, res := range results {
		out = append(out, models.RetrievedChunk{
			Rank:  i + 1,
			Text:  res.Text,
			Score: res.Score,
			Source: models.SourceInfo{
				Title:      res.Metadata.Title,
				Authors:    res.Metadata.Authors,
				Published:  res.Metadata.Published,
				PDFURL:     res.Metadata.PDFURL,
				ChunkIndex: res.Metadata.ChunkIndex,
			},
		})
	}
	return out, nil
}
