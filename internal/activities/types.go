package activities

import (
	"researchmind/internal/models"
	"researchmind/internal/vectorstore"
)

type SearchPapersInput struct {
	Query      string `json:"query"`
	Source     string `json:"source"`
	MaxResults int    `json:"max_results"`
}

type SearchPapersOutput struct {
	Papers []models.Paper `json:"papers"`
}

type AcquirePaperInput struct {
	Paper models.Paper `json:"paper"`
}

type AcquirePaperOutput struct {
	Paper models.Paper `json:"paper"`
}

type ChunkPaperInput struct {
	Paper models.Paper `json:"paper"`
}

type ChunkPaperOutput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedChunksInput struct {
	Chunks []models.Chunk `json:"chunks"`
}

type EmbedChunksOutput struct {
	Chunks []models.EmbeddedChunk `json:"chunks"`
}

type UpsertChunksInput struct {
	Chunks []models.EmbeddedChunk `json:"chunks"`
}

type CollectionStatsOutput struct {
	Stats vectorstore.Stats `json:"stats"`
}
