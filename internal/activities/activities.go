package activities

import (
	"context"
	"fmt"
	"time"

	"researchmind/internal/acquire"
	"researchmind/internal/chunker"
	"researchmind/internal/config"
	"researchmind/internal/embed"
	"researchmind/internal/providers"
	"researchmind/internal/sources"
	"researchmind/internal/util"
	"researchmind/internal/vectorstore"
)

type Activities struct {
	cfg      config.Config
	registry *sources.Registry
	acquirer *acquire.Acquirer
	chunker  *chunker.Chunker
	embedder *embed.Batcher
	store    vectorstore.Store
}

func New(cfg config.Config, store vectorstore.Store) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{
		cfg:      cfg,
		registry: sources.NewRegistry(nil),
		acquirer: acquire.New(nil, acquire.PDFExtractor{}, cfg.PDFCacheDir, cfg.MaxPDFBytes, time.Duration(cfg.DownloadTimeoutSecs)*time.Second),
		chunker:  chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxChunks),
		embedder: embed.NewBatcher(pm.FirstEmbedProvider(), cfg.EmbedDim, cfg.EmbedBatchSize, time.Duration(cfg.EmbedBatchDelay)*time.Millisecond),
		store:    store,
	}, nil
}

func (a *Activities) SearchPapersActivity(ctx context.Context, in SearchPapersInput) (SearchPapersOutput, error) {
	papers, err := a.registry.ForKind(in.Source).Search(ctx, in.Query, in.MaxResults)
	if err != nil {
		return SearchPapersOutput{}, fmt.Errorf("search %s: %w", in.Source, err)
	}
	return SearchPapersOutput{Papers: papers}, nil
}

func (a *Activities) AcquirePaperActivity(ctx context.Context, in AcquirePaperInput) (AcquirePaperOutput, error) {
	return AcquirePaperOutput{Paper: a.acquirer.Acquire(ctx, in.Paper)}, nil
}

func (a *Activities) ChunkPaperActivity(ctx context.Context, in ChunkPaperInput) (ChunkPaperOutput, error) {
	_ = ctx
	chunks := a.chunker.Chunk(in.Paper)
	if len(chunks) == 0 {
		return ChunkPaperOutput{}, fmt.Errorf("%s: %w", in.Paper.ID, util.ErrNoUsableContent)
	}
	return ChunkPaperOutput{Chunks: chunks}, nil
}

func (a *Activities) EmbedChunksActivity(ctx context.Context, in EmbedChunksInput) (EmbedChunksOutput, error) {
	embedded, err := a.embedder.EmbedChunks(ctx, in.Chunks)
	if err != nil {
		return EmbedChunksOutput{}, err
	}
	return EmbedChunksOutput{Chunks: embedded}, nil
}

func (a *Activities) UpsertChunksActivity(ctx context.Context, in UpsertChunksInput) error {
	return a.store.Upsert(ctx, vectorstore.RecordsFromEmbedded(in.Chunks))
}

func (a *Activities) CollectionStatsActivity(ctx context.Context) (CollectionStatsOutput, error) {
	stats, err := a.store.Stats(ctx)
	if err != nil {
		return CollectionStatsOutput{}, err
	}
	return CollectionStatsOutput{Stats: stats}, nil
}
