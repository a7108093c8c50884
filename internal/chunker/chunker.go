// Package chunker splits a paper's full text into bounded, overlapping
// word windows with attached provenance metadata.
package chunker

import (
	"strings"

	"researchmind/internal/models"
)

const (
	DefaultChunkSize = 600 // words per window
	DefaultOverlap   = 60  // words shared between consecutive windows
	DefaultMaxChunks = 15  // throughput cap, not a correctness bound

	// minChunkChars guards against trailing fragments: windows whose joined
	// text is this short carry no retrievable signal.
	minChunkChars = 50
)

type Chunker struct {
	ChunkSize int
	Overlap   int
	MaxChunks int
}

func New(chunkSize, overlap, maxChunks int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = DefaultOverlap
		if overlap >= chunkSize {
			overlap = 0
		}
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	return &Chunker{ChunkSize: chunkSize, Overlap: overlap, MaxChunks: maxChunks}
}

// Chunk slides a window of ChunkSize words over the paper's full text,
// advancing ChunkSize-Overlap words per step. Windows whose joined text is
// 50 characters or shorter are discarded, and production stops once
// MaxChunks windows exist. An empty result means the paper is unusable,
// not that an error occurred.
func (c *Chunker) Chunk(paper models.Paper) []models.Chunk {
	if len(paper.FullText) < minChunkChars {
		return nil
	}

	words := strings.Fields(paper.FullText)
	step := c.ChunkSize - c.Overlap
	if step <= 0 {
		step = c.ChunkSize
	}

	texts := make([]string, 0, c.MaxChunks)
	for start := 0; start < len(words); start += step {
		end := start + c.ChunkSize
		if end > len(words) {
			end = len(words)
		}
		text := strings.TrimSpace(strings.Join(words[start:end], " "))
		if len(text) > minChunkChars {
			texts = append(texts, text)
		}
		if len(texts) >= c.MaxChunks {
			break
		}
	}

	chunks := make([]models.Chunk, 0, len(texts))
	for i, text := range texts {
		chunks = append(chunks, models.Chunk{
			Text: text,
			Metadata: models.ChunkMetadata{
				PaperID:     paper.ID,
				Title:       paper.Title,
				Authors:     strings.Join(paper.Authors, ", "),
				Published:   paper.Published,
				PDFURL:      paper.PDFURL,
				ChunkIndex:  i,
				TotalChunks: len(texts),
			},
		})
	}
	return chunks
}
