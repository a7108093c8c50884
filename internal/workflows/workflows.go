package workflows

import (
	"fmt"
	"strings"
	"time"

	"researchmind/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetProgress = "GetProgress"

	statusIndexed = "indexed"
	statusSkipped = "skipped"
)

// IngestWorkflow searches a source and fans the resulting papers out to
// child workflows in bounded batches. A paper that cannot be processed is
// recorded as skipped; the run fails only if no paper survives.
func IngestWorkflow(ctx workflow.Context, input IngestInput) (string, error) {
	progress := IngestProgress{
		Query:         input.Query,
		Source:        input.Source,
		PerPaper:      map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetProgress, func() (IngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var searchOut activities.SearchPapersOutput
	if err := workflow.ExecuteActivity(ctx, "SearchPapersActivity", activities.SearchPapersInput{
		Query:      input.Query,
		Source:     input.Source,
		MaxResults: input.MaxResults,
	}).Get(ctx, &searchOut); err != nil {
		return "", err
	}
	papers := searchOut.Papers
	progress.Total = len(papers)
	if len(papers) == 0 {
		return "", fmt.Errorf("no papers found for %q", input.Query)
	}

	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(papers); i += maxChildren {
		end := i + maxChildren
		if end > len(papers) {
			end = len(papers)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		batch := papers[i:end]
		for _, paper := range batch {
			progress.PerPaper[paper.ID] = "processing"
			workflowID := "paper-" + sanitizeID(paper.ID)
			cwo := workflow.ChildWorkflowOptions{WorkflowID: workflowID}
			childCtx := workflow.WithChildOptions(ctx, cwo)
			futures = append(futures, workflow.ExecuteChildWorkflow(childCtx, PaperIngestWorkflow, PaperIngestInput{Paper: paper}))
			progress.ChildWorkflow[paper.ID] = workflowID
		}

		for idx, f := range futures {
			paper := batch[idx]
			var childStatus string
			if err := f.Get(ctx, &childStatus); err != nil {
				progress.Skipped++
				progress.PerPaper[paper.ID] = statusSkipped
				continue
			}
			progress.PerPaper[paper.ID] = childStatus
			if childStatus == statusIndexed {
				progress.Indexed++
			} else {
				progress.Skipped++
			}
		}
	}

	if progress.Indexed == 0 {
		return "", fmt.Errorf("could not process any of the %d papers found", progress.Total)
	}

	var statsOut activities.CollectionStatsOutput
	if err := workflow.ExecuteActivity(ctx, "CollectionStatsActivity").Get(ctx, &statsOut); err == nil {
		progress.TotalChunks = statsOut.Stats.TotalChunks
	}
	return fmt.Sprintf("Successfully indexed %d of %d papers", progress.Indexed, progress.Total), nil
}

// PaperIngestWorkflow runs the per-paper stages as activities. Content
// problems resolve to a skipped status instead of a workflow failure so the
// parent can keep going.
func PaperIngestWorkflow(ctx workflow.Context, input PaperIngestInput) (string, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    2,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var acquireOut activities.AcquirePaperOutput
	if err := workflow.ExecuteActivity(ctx, "AcquirePaperActivity", activities.AcquirePaperInput{Paper: input.Paper}).Get(ctx, &acquireOut); err != nil {
		return "", err
	}

	var chunkOut activities.ChunkPaperOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkPaperActivity", activities.ChunkPaperInput{Paper: acquireOut.Paper}).Get(ctx, &chunkOut); err != nil {
		if isNoContentError(err) {
			return statusSkipped, nil
		}
		return "", err
	}

	var embedOut activities.EmbedChunksOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedChunksActivity", activities.EmbedChunksInput{Chunks: chunkOut.Chunks}).Get(ctx, &embedOut); err != nil {
		return "", err
	}

	if err := workflow.ExecuteActivity(ctx, "UpsertChunksActivity", activities.UpsertChunksInput{Chunks: embedOut.Chunks}).Get(ctx, nil); err != nil {
		return "", err
	}
	return statusIndexed, nil
}

func isNoContentError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "no usable text content")
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
