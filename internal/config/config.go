package config

import (
	"os"
	"strconv"
)

type Config struct {
	APIAddr           string
	TemporalAddress   string
	TemporalTaskQueue string

	StoreBackend string
	StorePath    string
	PDFCacheDir  string

	ChunkSize    int
	ChunkOverlap int
	MaxChunks    int

	EmbedDim        int
	EmbedBatchSize  int
	EmbedBatchDelay int // milliseconds between sub-batches

	DefaultTopK     int
	MaxAnswerTokens int
	Temperature     float64

	DownloadTimeoutSecs int
	MaxPDFBytes         int64
	MaxUploadBytes      int64

	LLMProviders      string
	EmbedProviders    string
	IngestMaxChildren int
}

func Load() Config {
	return Config{
		APIAddr:             getenv("RESEARCHMIND_API_ADDR", ":3001"),
		TemporalAddress:     getenv("RESEARCHMIND_TEMPORAL_ADDRESS", "localhost:7233"),
		TemporalTaskQueue:   getenv("RESEARCHMIND_TEMPORAL_TASK_QUEUE", "researchmind"),
		StoreBackend:        getenv("RESEARCHMIND_STORE_BACKEND", "json"),
		StorePath:           getenv("RESEARCHMIND_STORE_PATH", "./data/vectorstore.json"),
		PDFCacheDir:         getenv("RESEARCHMIND_PDF_CACHE", "./pdfs"),
		ChunkSize:           getenvInt("RESEARCHMIND_CHUNK_SIZE", 600),
		ChunkOverlap:        getenvInt("RESEARCHMIND_CHUNK_OVERLAP", 60),
		MaxChunks:           getenvInt("RESEARCHMIND_MAX_CHUNKS", 15),
		EmbedDim:            getenvInt("RESEARCHMIND_EMBED_DIM", 384),
		EmbedBatchSize:      getenvInt("RESEARCHMIND_EMBED_BATCH_SIZE", 5),
		EmbedBatchDelay:     getenvInt("RESEARCHMIND_EMBED_BATCH_DELAY_MS", 300),
		DefaultTopK:         getenvInt("RESEARCHMIND_TOP_K", 3),
		MaxAnswerTokens:     getenvInt("RESEARCHMIND_MAX_ANSWER_TOKENS", 1024),
		Temperature:         getenvFloat("RESEARCHMIND_TEMPERATURE", 0.3),
		DownloadTimeoutSecs: getenvInt("RESEARCHMIND_DOWNLOAD_TIMEOUT_SECONDS", 15),
		MaxPDFBytes:         int64(getenvInt("RESEARCHMIND_MAX_PDF_BYTES", 5<<20)),
		MaxUploadBytes:      int64(getenvInt("RESEARCHMIND_MAX_UPLOAD_BYTES", 20<<20)),
		LLMProviders:        getenv("RESEARCHMIND_LLM_PROVIDERS", "groq"),
		EmbedProviders:      getenv("RESEARCHMIND_EMBED_PROVIDERS", "huggingface"),
		IngestMaxChildren:   getenvInt("RESEARCHMIND_INGEST_MAX_CHILDREN", 3),
	}
}

func getenv(k, fallback string) string {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	return v
}

func getenvInt(k string, fallback int) int {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvFloat(k string, fallback float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}
