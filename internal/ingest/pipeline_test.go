package ingest

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"researchmind/internal/acquire"
	"researchmind/internal/chunker"
	"researchmind/internal/embed"
	"researchmind/internal/models"
	"researchmind/internal/providers"
	"researchmind/internal/sources"
	"researchmind/internal/vectorstore"
)

type stubAdapter struct {
	papers []models.Paper
	err    error
}

func (s stubAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	_ = ctx
	return s.papers, s.err
}

func longText(words int) string {
	out := make([]string, words)
	for i := range out {
		out[i] = fmt.Sprintf("lexeme%04d", i)
	}
	return strings.Join(out, " ")
}

func testPipeline(t *testing.T, papers []models.Paper, searchErr error) (*Pipeline, vectorstore.Store) {
	t.Helper()
	registry := sources.NewRegistry(nil)
	registry.Register(models.SourceArxiv, stubAdapter{papers: papers, err: searchErr})
	store := vectorstore.NewMemoryStore()
	p := NewPipeline(
		registry,
		acquire.New(nil, nil, "", 0, 0),
		chunker.New(40, 4, 15),
		embed.NewBatcher(providers.NewMockProvider(8), 8, 5, 0),
		store,
		2,
	)
	return p, store
}

func goodPaper(id string) models.Paper {
	return models.Paper{
		ID:       id,
		Title:    "Paper " + id,
		Authors:  []string{"Author"},
		PDFURL:   models.NoPDF,
		Source:   models.SourceArxiv,
		FullText: longText(100),
	}
}

func badPaper(id string) models.Paper {
	// No full text, no retrievable file, no abstract worth chunking.
	return models.Paper{ID: id, Title: "Bad " + id, PDFURL: models.NoPDF, Abstract: "x"}
}

func TestRunEmitsOrderedEvents(t *testing.T) {
	p, store := testPipeline(t, []models.Paper{goodPaper("p1"), goodPaper("p2")}, nil)

	var events []Event
	res, err := p.Run(context.Background(), "graphene", models.SourceArxiv, 5, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if res.Found != 2 || len(res.Indexed) != 2 || len(res.Skipped) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if res.Message != "Successfully indexed 2 of 2 papers" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	if events[0].Type != EventSearchStarted || events[0].Progress != 5 {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != EventFound || events[1].Progress != 15 || len(events[1].Papers) != 2 {
		t.Fatalf("unexpected found event: %+v", events[1])
	}
	last := events[len(events)-1]
	if last.Type != EventDone || last.Progress != 100 || last.Stats == nil {
		t.Fatalf("unexpected final event: %+v", last)
	}
	if events[len(events)-2].Type != EventFinalizing {
		t.Fatalf("expected finalizing before done, got %+v", events[len(events)-2])
	}

	prev := -1
	for i, e := range events {
		if e.Progress < prev {
			t.Fatalf("progress regressed at event %d: %d -> %d", i, prev, e.Progress)
		}
		prev = e.Progress
	}

	perPaper := events[2 : len(events)-2]
	wantStages := []EventType{
		EventDownloading, EventChunking, EventEmbedding, EventIndexed,
		EventDownloading, EventChunking, EventEmbedding, EventIndexed,
	}
	if len(perPaper) != len(wantStages) {
		t.Fatalf("expected %d per-paper events, got %d", len(wantStages), len(perPaper))
	}
	for i, e := range perPaper {
		if e.Type != wantStages[i] {
			t.Fatalf("per-paper event %d is %s, want %s", i, e.Type, wantStages[i])
		}
	}

	stats, _ := store.Stats(context.Background())
	if stats.TotalPapers != 2 {
		t.Fatalf("expected 2 papers indexed, got %d", stats.TotalPapers)
	}
}

func TestRunIsolatesPerPaperFailure(t *testing.T) {
	p, _ := testPipeline(t, []models.Paper{goodPaper("p1"), badPaper("p2")}, nil)

	var events []Event
	res, err := p.Run(context.Background(), "graphene", models.SourceArxiv, 5, func(e Event) {
		events = append(events, e)
	})
	if err != nil {
		t.Fatalf("run should succeed with one good paper: %v", err)
	}
	if len(res.Indexed) != 1 || len(res.Skipped) != 1 {
		t.Fatalf("unexpected result: indexed=%d skipped=%d", len(res.Indexed), len(res.Skipped))
	}
	if res.Skipped[0].ID != "p2" {
		t.Fatalf("wrong paper skipped: %s", res.Skipped[0].ID)
	}
	if res.Message != "Successfully indexed 1 of 2 papers" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	sawSkip := false
	for _, e := range events {
		if e.Type == EventSkipped {
			sawSkip = true
		}
	}
	if !sawSkip {
		t.Fatal("expected a skipped event")
	}
}

func TestRunFailsWhenNothingIndexed(t *testing.T) {
	p, _ := testPipeline(t, []models.Paper{badPaper("p1"), badPaper("p2")}, nil)

	var last Event
	_, err := p.Run(context.Background(), "graphene", models.SourceArxiv, 5, func(e Event) { last = e })
	if err == nil {
		t.Fatal("expected error when every paper fails")
	}
	if last.Type != EventError {
		t.Fatalf("expected terminal error event, got %+v", last)
	}
}

func TestRunNoResultsIsError(t *testing.T) {
	p, _ := testPipeline(t, nil, nil)
	_, err := p.Run(context.Background(), "nonexistent topic", models.SourceArxiv, 5, nil)
	if err == nil {
		t.Fatal("expected error for empty search result")
	}
	if !strings.Contains(err.Error(), "no papers found") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRunParallelIndexesAll(t *testing.T) {
	p, store := testPipeline(t, []models.Paper{goodPaper("p1"), goodPaper("p2"), badPaper("p3")}, nil)

	res, err := p.RunParallel(context.Background(), "graphene", models.SourceArxiv, 5)
	if err != nil {
		t.Fatalf("run parallel: %v", err)
	}
	if res.Found != 3 || len(res.Indexed) != 2 || len(res.Skipped) != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	stats, _ := store.Stats(context.Background())
	if stats.TotalPapers != 2 {
		t.Fatalf("expected 2 papers in store, got %d", stats.TotalPapers)
	}
}

func TestIngestPaperUsableTwice(t *testing.T) {
	p, store := testPipeline(t, nil, nil)
	paper := goodPaper("p1")

	if _, err := p.IngestPaper(context.Background(), paper); err != nil {
		t.Fatalf("first ingest: %v", err)
	}
	if _, err := p.IngestPaper(context.Background(), paper); err != nil {
		t.Fatalf("second ingest: %v", err)
	}

	stats, _ := store.Stats(context.Background())
	if stats.TotalPapers != 1 {
		t.Fatalf("re-ingesting must not duplicate, got %d papers", stats.TotalPapers)
	}
}
