package workflows

import "researchmind/internal/models"

type IngestInput struct {
	Query                 string `json:"query"`
	Source                string `json:"source"`
	MaxResults            int    `json:"max_results"`
	MaxConcurrentChildren int    `json:"max_concurrent_children"`
}

type PaperIngestInput struct {
	Paper models.Paper `json:"paper"`
}

type IngestProgress struct {
	Query         string            `json:"query"`
	Source        string            `json:"source"`
	Total         int               `json:"total"`
	Indexed       int               `json:"indexed"`
	Skipped       int               `json:"skipped"`
	PerPaper      map[string]string `json:"per_paper_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
	TotalChunks   int               `json:"total_chunks"`
}
