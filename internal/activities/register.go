package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.SearchPapersActivity)
	w.RegisterActivity(a.AcquirePaperActivity)
	w.RegisterActivity(a.ChunkPaperActivity)
	w.RegisterActivity(a.EmbedChunksActivity)
	w.RegisterActivity(a.UpsertChunksActivity)
	w.RegisterActivity(a.CollectionStatsActivity)
}
