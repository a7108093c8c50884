package ingest

import (
	"researchmind/internal/models"
	"researchmind/internal/vectorstore"
)

type EventType string

const (
	EventSearchStarted EventType = "search_started"
	EventFound         EventType = "found"
	EventDownloading   EventType = "downloading"
	EventChunking      EventType = "chunking"
	EventEmbedding     EventType = "embedding"
	EventIndexed       EventType = "indexed"
	EventSkipped       EventType = "skipped"
	EventFinalizing    EventType = "finalizing"
	EventDone          EventType = "done"
	EventError         EventType = "error"
)

// Event is one element of the ordered, finite progress sequence emitted by
// a progressive ingestion run. The pipeline knows nothing about how events
// are transported; the API layer encodes them (e.g. as SSE).
type Event struct {
	Type     EventType             `json:"type"`
	Message  string                `json:"message"`
	Progress int                   `json:"progress"`
	Stage    string                `json:"stage,omitempty"`
	Papers   []models.PaperSummary `json:"papers,omitempty"`
	Stats    *vectorstore.Stats    `json:"stats,omitempty"`
}

// Sink consumes progress events in emission order. It must not be called
// concurrently; the sequential orchestration guarantees strict ordering.
type Sink func(Event)

func (s Sink) emit(e Event) {
	if s != nil {
		s(e)
	}
}
