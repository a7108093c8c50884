package vectorstore

import (
	"fmt"
	"sort"

	"researchmind/internal/models"
)

// collection holds the in-memory record set shared by the memory and
// jsonfile backends. Callers hold the backend's lock.
type collection struct {
	records []models.StoredRecord
	index   map[string]int // id -> position in records
	dim     int            // embedding dimensionality, 0 until first record
}

func newCollection() *collection {
	return &collection{index: map[string]int{}}
}

func (c *collection) load(records []models.StoredRecord) error {
	c.records = nil
	c.index = map[string]int{}
	c.dim = 0
	return c.upsert(records)
}

func (c *collection) upsert(records []models.StoredRecord) error {
	// Validate the whole batch before touching state so a bad record
	// midway through cannot leave a partially applied batch behind.
	dim := c.dim
	for _, r := range records {
		if len(r.Embedding) == 0 {
			return fmt.Errorf("record %s has no embedding", r.ID)
		}
		if dim == 0 {
			dim = len(r.Embedding)
		} else if len(r.Embedding) != dim {
			return fmt.Errorf("record %s embedding dimension %d does not match store dimension %d", r.ID, len(r.Embedding), dim)
		}
	}
	c.dim = dim
	for _, r := range records {
		if pos, ok := c.index[r.ID]; ok {
			c.records[pos] = r
			continue
		}
		c.index[r.ID] = len(c.records)
		c.records = append(c.records, r)
	}
	return nil
}

func (c *collection) search(query []float32, topK int) ([]ScoredRecord, error) {
	if len(c.records) == 0 {
		return nil, nil
	}
	if len(query) != c.dim {
		return nil, fmt.Errorf("query dimension %d does not match store dimension %d", len(query), c.dim)
	}
	scored := make([]ScoredRecord, 0, len(c.records))
	for _, r := range c.records {
		score, err := CosineSimilarity(query, r.Embedding)
		if err != nil {
			return nil, fmt.Errorf("score record %s: %w", r.ID, err)
		}
		scored = append(scored, ScoredRecord{StoredRecord: r, Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (c *collection) stats() Stats {
	papers := map[string]struct{}{}
	for _, r := range c.records {
		papers[r.Metadata.PaperID] = struct{}{}
	}
	return Stats{TotalChunks: len(c.records), TotalPapers: len(papers)}
}

func (c *collection) clear() {
	c.records = nil
	c.index = map[string]int{}
	c.dim = 0
}
