// Package embed converts chunks and query strings into fixed-dimension
// vectors, throttling provider calls in small concurrent sub-batches.
package embed

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"researchmind/internal/models"
	"researchmind/internal/providers"
)

const (
	DefaultBatchSize  = 5
	DefaultBatchDelay = 300 * time.Millisecond
)

type Batcher struct {
	provider   providers.EmbeddingProvider
	dim        int
	batchSize  int
	batchDelay time.Duration
}

func NewBatcher(p providers.EmbeddingProvider, dim, batchSize int, batchDelay time.Duration) *Batcher {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	if batchDelay < 0 {
		batchDelay = DefaultBatchDelay
	}
	return &Batcher{provider: p, dim: dim, batchSize: batchSize, batchDelay: batchDelay}
}

// EmbedQuery embeds a single query string.
func (b *Batcher) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vecs, _, err := b.provider.Embed(ctx, providers.EmbedRequest{
		Operation: "embed_query",
		Inputs:    []string{text},
		Dimension: b.dim,
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, fmt.Errorf("embedding provider returned no vector")
	}
	return vecs[0], nil
}

// EmbedChunks embeds every chunk, issuing one provider call per chunk with
// at most batchSize calls in flight, then sleeping batchDelay before the
// next sub-batch to stay inside provider rate limits. Output order matches
// input order. A failure on any chunk fails the whole call; partial success
// is handled one level up, per paper.
func (b *Batcher) EmbedChunks(ctx context.Context, chunks []models.Chunk) ([]models.EmbeddedChunk, error) {
	out := make([]models.EmbeddedChunk, len(chunks))
	for start := 0; start < len(chunks); start += b.batchSize {
		end := start + b.batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			g.Go(func() error {
				vecs, _, err := b.provider.Embed(gctx, providers.EmbedRequest{
					Operation: "embed_chunk",
					Inputs:    []string{chunks[i].Text},
					Dimension: b.dim,
				})
				if err != nil {
					return fmt.Errorf("embed chunk %d: %w", chunks[i].Metadata.ChunkIndex, err)
				}
				if len(vecs) == 0 || len(vecs[0]) == 0 {
					return fmt.Errorf("embedding provider returned no vector for chunk %d", chunks[i].Metadata.ChunkIndex)
				}
				out[i] = models.EmbeddedChunk{Chunk: chunks[i], Embedding: vecs[0]}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		if end < len(chunks) && b.batchDelay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(b.batchDelay):
			}
		}
	}
	return out, nil
}
