package models

// NoPDF marks a paper without a retrievable file. Acquisition skips the
// download step for it and relies on pre-fetched or fallback text.
const NoPDF = "no-pdf"

// Source kinds accepted by the ingestion API.
const (
	SourceArxiv    = "arxiv"
	SourceSemantic = "semantic"
	SourcePubMed   = "pubmed"
	SourceChemRxiv = "chemrxiv"
	SourceUpload   = "upload"
)

// Paper is a fetched or uploaded document. It is never persisted itself;
// it is consumed into chunks and discarded.
type Paper struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Abstract  string   `json:"abstract"`
	Published string   `json:"published"`
	PDFURL    string   `json:"pdf_url"`
	Source    string   `json:"source"`
	FullText  string   `json:"full_text,omitempty"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// ChunkMetadata carries a chunk's provenance through embedding, storage
// and retrieval.
type ChunkMetadata struct {
	PaperID     string `json:"paper_id"`
	Title       string `json:"title"`
	Authors     string `json:"authors"`
	Published   string `json:"published"`
	PDFURL      string `json:"pdf_url"`
	ChunkIndex  int    `json:"chunk_index"`
	TotalChunks int    `json:"total_chunks"`
}

// Chunk is a bounded slice of a paper's text plus provenance.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// EmbeddedChunk is a Chunk plus its embedding vector. All embeddings in a
// store share one dimensionality.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32 `json:"embedding"`
}

// StoredRecord is the persisted unit. ID is the dedup key:
// "{paperID}_chunk_{chunkIndex}".
type StoredRecord struct {
	ID        string        `json:"id"`
	Text      string        `json:"text"`
	Embedding []float32     `json:"embedding"`
	Metadata  ChunkMetadata `json:"metadata"`
}

// SourceInfo is the provenance shape attached to retrieval results.
type SourceInfo struct {
	Title      string `json:"title"`
	Authors    string `json:"authors"`
	Published  string `json:"published"`
	PDFURL     string `json:"pdf_url"`
	ChunkIndex int    `json:"chunk_index"`
}

// RetrievedChunk is one retrieval result, ranked by descending score.
type RetrievedChunk struct {
	Rank   int        `json:"rank"`
	Text   string     `json:"text"`
	Score  float64    `json:"score"`
	Source SourceInfo `json:"source"`
}

// Citation is derived per answer from the chunks actually retrieved for
// that question; it is a rendering of what was retrieved, not a validation
// of what the model cited.
type Citation struct {
	Number    int    `json:"number"`
	Title     string `json:"title"`
	Authors   string `json:"authors"`
	Published string `json:"published"`
	PDFURL    string `json:"pdf_url"`
}

// Answer is the synthesizer's output.
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// PaperSummary is the trimmed paper shape reported back to ingestion callers.
type PaperSummary struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Published string   `json:"published"`
	Abstract  string   `json:"abstract"`
	PDFURL    string   `json:"pdf_url"`
	Source    string   `json:"source"`
	Fallback  bool     `json:"fallback,omitempty"`
}

// Summarize reduces a paper to the shape reported to callers.
func (p Paper) Summarize() PaperSummary {
	return PaperSummary{
		ID:        p.ID,
		Title:     p.Title,
		Authors:   p.Authors,
		Published: p.Published,
		Abstract:  p.Abstract,
		PDFURL:    p.PDFURL,
		Source:    p.Source,
		Fallback:  p.Fallback,
	}
}
