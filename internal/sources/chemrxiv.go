package sources

import (
	"context"

	"researchmind/internal/models"
)

// ChemRxivAdapter covers chemistry preprints by narrowing a Semantic
// Scholar search to chemistry-adjacent fields of study; ChemRxiv has no
// stable public search API of its own.
type ChemRxivAdapter struct {
	semantic *SemanticScholarAdapter
}

func NewChemRxivAdapter(semantic *SemanticScholarAdapter) *ChemRxivAdapter {
	return &ChemRxivAdapter{semantic: semantic}
}

func (c *ChemRxivAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	return c.semantic.search(ctx, query, maxResults,
		"Chemistry,Materials Science,Chemical Engineering",
		"chemrxiv_", models.SourceChemRxiv)
}
