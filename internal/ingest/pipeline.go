package ingest

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"researchmind/internal/acquire"
	"researchmind/internal/chunker"
	"researchmind/internal/embed"
	"researchmind/internal/models"
	"researchmind/internal/sources"
	"researchmind/internal/util"
	"researchmind/internal/vectorstore"
)

// Progress anchors for the event sequence. The span between foundProgress
// and finalizingProgress is divided evenly across the papers being ingested.
const (
	searchProgress     = 5
	foundProgress      = 15
	finalizingProgress = 95
	doneProgress       = 100

	chunkingFraction  = 0.3
	embeddingFraction = 0.6
)

// SkippedPaper records a paper that failed one of the per-paper stages.
// Failures are isolated; one bad paper never aborts the run.
type SkippedPaper struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Reason string `json:"reason"`
}

// Result summarizes a completed ingestion run.
type Result struct {
	Found   int                   `json:"found"`
	Indexed []models.PaperSummary `json:"indexed"`
	Skipped []SkippedPaper        `json:"skipped,omitempty"`
	Stats   vectorstore.Stats     `json:"stats"`
	Message string                `json:"message"`
}

// Pipeline wires the ingestion stages together: source search, text
// acquisition, chunking, embedding and indexing.
type Pipeline struct {
	registry *sources.Registry
	acquirer *acquire.Acquirer
	chunker  *chunker.Chunker
	embedder *embed.Batcher
	store    vectorstore.Store

	maxParallel int
}

func NewPipeline(registry *sources.Registry, acq *acquire.Acquirer, ch *chunker.Chunker, emb *embed.Batcher, store vectorstore.Store, maxParallel int) *Pipeline {
	if maxParallel <= 0 {
		maxParallel = 3
	}
	return &Pipeline{
		registry:    registry,
		acquirer:    acq,
		chunker:     ch,
		embedder:    emb,
		store:       store,
		maxParallel: maxParallel,
	}
}

// Run executes a full ingestion sequentially, reporting progress through
// sink as each stage completes. Events arrive in a deterministic order with
// monotonically non-decreasing progress. The run succeeds if at least one
// paper is indexed.
func (p *Pipeline) Run(ctx context.Context, query, source string, maxResults int, sink Sink) (Result, error) {
	sink.emit(Event{Type: EventSearchStarted, Message: fmt.Sprintf("Searching %s for %q...", sourceLabel(source), query), Progress: searchProgress})

	papers, err := p.search(ctx, query, source, maxResults)
	if err != nil {
		sink.emit(Event{Type: EventError, Message: err.Error()})
		return Result{}, err
	}
	if len(papers) == 0 {
		err := fmt.Errorf("no papers found for %q, try a different search term", query)
		sink.emit(Event{Type: EventError, Message: err.Error()})
		return Result{}, err
	}

	summaries := make([]models.PaperSummary, 0, len(papers))
	for _, paper := range papers {
		summaries = append(summaries, paper.Summarize())
	}
	sink.emit(Event{Type: EventFound, Message: fmt.Sprintf("Found %d papers", len(papers)), Progress: foundProgress, Papers: summaries})

	res := Result{Found: len(papers), Indexed: []models.PaperSummary{}}
	span := float64(finalizingProgress-foundProgress) / float64(len(papers))
	for i, paper := range papers {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		base := float64(foundProgress) + span*float64(i)
		title := util.TruncateForDisplay(paper.Title, 45)

		sink.emit(Event{Type: EventDownloading, Message: fmt.Sprintf("Downloading %s", title), Progress: int(base), Stage: string(EventDownloading)})
		acquired := p.acquirer.Acquire(ctx, paper)

		sink.emit(Event{Type: EventChunking, Message: fmt.Sprintf("Chunking %s", title), Progress: int(base + span*chunkingFraction), Stage: string(EventChunking)})
		chunks := p.chunker.Chunk(acquired)
		if len(chunks) == 0 {
			res.Skipped = append(res.Skipped, SkippedPaper{ID: paper.ID, Title: paper.Title, Reason: util.ErrNoUsableContent.Error()})
			sink.emit(Event{Type: EventSkipped, Message: fmt.Sprintf("Skipped %s: no usable content", title), Progress: int(base + span)})
			continue
		}

		sink.emit(Event{Type: EventEmbedding, Message: fmt.Sprintf("Embedding %s (%d chunks)", title, len(chunks)), Progress: int(base + span*embeddingFraction), Stage: string(EventEmbedding)})
		embedded, err := p.embedder.EmbedChunks(ctx, chunks)
		if err != nil {
			log.Printf("ingest: embedding %s failed: %v", paper.ID, err)
			res.Skipped = append(res.Skipped, SkippedPaper{ID: paper.ID, Title: paper.Title, Reason: err.Error()})
			sink.emit(Event{Type: EventSkipped, Message: fmt.Sprintf("Skipped %s: embedding failed", title), Progress: int(base + span)})
			continue
		}

		if err := p.store.Upsert(ctx, vectorstore.RecordsFromEmbedded(embedded)); err != nil {
			log.Printf("ingest: indexing %s failed: %v", paper.ID, err)
			res.Skipped = append(res.Skipped, SkippedPaper{ID: paper.ID, Title: paper.Title, Reason: err.Error()})
			sink.emit(Event{Type: EventSkipped, Message: fmt.Sprintf("Skipped %s: indexing failed", title), Progress: int(base + span)})
			continue
		}

		res.Indexed = append(res.Indexed, acquired.Summarize())
		sink.emit(Event{Type: EventIndexed, Message: fmt.Sprintf("Indexed %s", title), Progress: int(base + span)})
	}

	sink.emit(Event{Type: EventFinalizing, Message: "Finalizing index...", Progress: finalizingProgress})

	if len(res.Indexed) == 0 {
		err := fmt.Errorf("could not process any of the %d papers found", len(papers))
		sink.emit(Event{Type: EventError, Message: err.Error()})
		return res, err
	}

	stats, err := p.store.Stats(ctx)
	if err != nil {
		sink.emit(Event{Type: EventError, Message: err.Error()})
		return res, err
	}
	res.Stats = stats
	res.Message = fmt.Sprintf("Successfully indexed %d of %d papers", len(res.Indexed), len(papers))
	sink.emit(Event{Type: EventDone, Message: res.Message, Progress: doneProgress, Stats: &stats})
	return res, nil
}

// RunParallel executes the same ingestion with per-paper stages running
// concurrently, bounded by the pipeline's parallelism limit. No progress
// events are produced; callers that need streaming use Run.
func (p *Pipeline) RunParallel(ctx context.Context, query, source string, maxResults int) (Result, error) {
	papers, err := p.search(ctx, query, source, maxResults)
	if err != nil {
		return Result{}, err
	}
	if len(papers) == 0 {
		return Result{}, fmt.Errorf("no papers found for %q, try a different search term", query)
	}

	res := Result{Found: len(papers), Indexed: []models.PaperSummary{}}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxParallel)
	for _, paper := range papers {
		paper := paper
		g.Go(func() error {
			indexed, err := p.IngestPaper(gctx, paper)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Skipped = append(res.Skipped, SkippedPaper{ID: paper.ID, Title: paper.Title, Reason: err.Error()})
				return nil
			}
			res.Indexed = append(res.Indexed, indexed.Summarize())
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	if len(res.Indexed) == 0 {
		return res, fmt.Errorf("could not process any of the %d papers found", len(papers))
	}
	stats, err := p.store.Stats(ctx)
	if err != nil {
		return res, err
	}
	res.Stats = stats
	res.Message = fmt.Sprintf("Successfully indexed %d of %d papers", len(res.Indexed), len(papers))
	return res, nil
}

// IngestPaper runs the per-paper stages: acquire full text, chunk, embed
// and index. It returns the acquired paper so callers can report whether a
// fallback to abstract-only text happened.
func (p *Pipeline) IngestPaper(ctx context.Context, paper models.Paper) (models.Paper, error) {
	acquired := p.acquirer.Acquire(ctx, paper)

	chunks := p.chunker.Chunk(acquired)
	if len(chunks) == 0 {
		return acquired, fmt.Errorf("%s: %w", paper.ID, util.ErrNoUsableContent)
	}

	embedded, err := p.embedder.EmbedChunks(ctx, chunks)
	if err != nil {
		return acquired, fmt.Errorf("embedding %s: %w", paper.ID, err)
	}

	if err := p.store.Upsert(ctx, vectorstore.RecordsFromEmbedded(embedded)); err != nil {
		return acquired, fmt.Errorf("indexing %s: %w", paper.ID, err)
	}
	return acquired, nil
}

func (p *Pipeline) search(ctx context.Context, query, source string, maxResults int) ([]models.Paper, error) {
	adapter := p.registry.ForKind(source)
	papers, err := adapter.Search(ctx, query, maxResults)
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w", sourceLabel(source), err)
	}
	return papers, nil
}

func sourceLabel(source string) string {
	switch source {
	case models.SourceSemantic:
		return "Semantic Scholar"
	case models.SourcePubMed:
		return "PubMed"
	case models.SourceChemRxiv:
		return "ChemRxiv"
	default:
		return "arXiv"
	}
}
