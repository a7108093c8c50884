package vectorstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"researchmind/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS records (
	id           TEXT PRIMARY KEY,
	paper_id     TEXT NOT NULL,
	chunk_index  INTEGER NOT NULL,
	total_chunks INTEGER NOT NULL,
	title        TEXT NOT NULL DEFAULT '',
	authors      TEXT NOT NULL DEFAULT '',
	published    TEXT NOT NULL DEFAULT '',
	pdf_url      TEXT NOT NULL DEFAULT '',
	text         TEXT NOT NULL,
	embedding    BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_records_paper ON records(paper_id);
`

type recordRow struct {
	ID          string `db:"id"`
	PaperID     string `db:"paper_id"`
	ChunkIndex  int    `db:"chunk_index"`
	TotalChunks int    `db:"total_chunks"`
	Title       string `db:"title"`
	Authors     string `db:"authors"`
	Published   string `db:"published"`
	PDFURL      string `db:"pdf_url"`
	Text        string `db:"text"`
	Embedding   []byte `db:"embedding"`
}

// SQLiteStore is the embedded-engine backend: records live in a single
// sqlite file, embeddings as float32 BLOBs. Similarity search stays
// brute-force in Go; sqlite only provides durability.
type SQLiteStore struct {
	db *sqlx.DB
}

func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Upsert(ctx context.Context, records []models.StoredRecord) error {
	if len(records) == 0 {
		return nil
	}
	dim, err := s.dimension(ctx)
	if err != nil {
		return err
	}
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

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, r := range records {
		_, err := tx.ExecContext(ctx, `
INSERT INTO records (id, paper_id, chunk_index, total_chunks, title, authors, published, pdf_url, text, embedding)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  paper_id     = excluded.paper_id,
  chunk_index  = excluded.chunk_index,
  total_chunks = excluded.total_chunks,
  title        = excluded.title,
  authors      = excluded.authors,
  published    = excluded.published,
  pdf_url      = excluded.pdf_url,
  text         = excluded.text,
  embedding    = excluded.embedding`,
			r.ID, r.Metadata.PaperID, r.Metadata.ChunkIndex, r.Metadata.TotalChunks,
			r.Metadata.Title, r.Metadata.Authors, r.Metadata.Published, r.Metadata.PDFURL,
			r.Text, EncodeEmbedding(r.Embedding),
		)
		if err != nil {
			return fmt.Errorf("upsert record %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Search(ctx context.Context, query []float32, topK int) ([]ScoredRecord, error) {
	var rows []recordRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM records ORDER BY paper_id, chunk_index`); err != nil {
		return nil, fmt.Errorf("load records: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	scored := make([]ScoredRecord, 0, len(rows))
	for _, row := range rows {
		vec, err := DecodeEmbedding(row.Embedding)
		if err != nil {
			return nil, fmt.Errorf("decode record %s: %w", row.ID, err)
		}
		score, err := CosineSimilarity(query, vec)
		if err != nil {
			return nil, fmt.Errorf("score record %s: %w", row.ID, err)
		}
		scored = append(scored, ScoredRecord{StoredRecord: rowToRecord(row, vec), Score: score})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored, nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	if err := s.db.GetContext(ctx, &st.TotalChunks, `SELECT COUNT(*) FROM records`); err != nil {
		return Stats{}, fmt.Errorf("count chunks: %w", err)
	}
	if err := s.db.GetContext(ctx, &st.TotalPapers, `SELECT COUNT(DISTINCT paper_id) FROM records`); err != nil {
		return Stats{}, fmt.Errorf("count papers: %w", err)
	}
	return st, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) dimension(ctx context.Context) (int, error) {
	var blob []byte
	err := s.db.GetContext(ctx, &blob, `SELECT embedding FROM records LIMIT 1`)
	if errors.Is(err, sql.ErrNoRows) {
		// Empty store has no fixed dimension yet.
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("probe store dimension: %w", err)
	}
	return len(blob) / 4, nil
}

func rowToRecord(row recordRow, vec []float32) models.StoredRecord {
	return models.StoredRecord{
		ID:        row.ID,
		Text:      row.Text,
		Embedding: vec,
		Metadata: models.ChunkMetadata{
			PaperID:     row.PaperID,
			Title:       row.Title,
			Authors:     row.Authors,
			Published:   row.Published,
			PDFURL:      row.PDFURL,
			ChunkIndex:  row.ChunkIndex,
			TotalChunks: row.TotalChunks,
		},
	}
}
