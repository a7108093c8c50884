// Package acquire obtains a paper's full text: pre-supplied text is kept
// as-is, otherwise the PDF is downloaded and extracted, and any failure
// degrades to abstract-only text instead of propagating. Acquisition never
// fails outward.
package acquire

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"researchmind/internal/models"
	"researchmind/internal/util"
)

const (
	// minPrefetchedChars: pre-supplied text shorter than this is treated
	// as absent (an abstract-only fallback is always longer).
	minPrefetchedChars = 100

	DefaultMaxPDFBytes = 5 << 20
	DefaultTimeout     = 15 * time.Second
)

type Acquirer struct {
	client    *http.Client
	extractor Extractor
	cacheDir  string
	maxBytes  int64
	timeout   time.Duration
}

func New(client *http.Client, extractor Extractor, cacheDir string, maxBytes int64, timeout time.Duration) *Acquirer {
	if client == nil {
		client = &http.Client{}
	}
	if extractor == nil {
		extractor = PDFExtractor{}
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxPDFBytes
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Acquirer{client: client, extractor: extractor, cacheDir: cacheDir, maxBytes: maxBytes, timeout: timeout}
}

// Acquire returns a copy of the paper with FullText populated. Papers that
// arrive with usable text keep it; otherwise the PDF at PDFURL is
// downloaded (cached by paper id, capped at maxBytes) and extracted. Any
// download or extraction failure falls back to the abstract or title and
// marks the paper degraded.
func (a *Acquirer) Acquire(ctx context.Context, paper models.Paper) models.Paper {
	if len(paper.FullText) > minPrefetchedChars {
		return paper
	}

	text, err := a.fetchText(ctx, paper)
	if err != nil {
		log.Printf("acquire %s: %v; falling back to abstract", paper.ID, err)
		fallback := paper.Abstract
		if strings.TrimSpace(fallback) == "" {
			fallback = paper.Title
		}
		paper.FullText = fallback
		paper.Fallback = true
		return paper
	}
	paper.FullText = text
	return paper
}

func (a *Acquirer) fetchText(ctx context.Context, paper models.Paper) (string, error) {
	if paper.PDFURL == "" || paper.PDFURL == models.NoPDF {
		return "", fmt.Errorf("paper has no retrievable file")
	}

	data, err := a.cachedDownload(ctx, paper)
	if err != nil {
		return "", err
	}
	text, err := a.extractor.Extract(data)
	if err != nil {
		return "", err
	}
	return text, nil
}

// cachePath flattens the paper id into a single file name under cacheDir
// so ids with slashes cannot escape the cache directory.
func (a *Acquirer) cachePath(paperID string) string {
	name := strings.ReplaceAll(paperID, "/", "_") + ".pdf"
	return filepath.Join(a.cacheDir, filepath.Base(name))
}

func (a *Acquirer) cachedDownload(ctx context.Context, paper models.Paper) ([]byte, error) {
	path := ""
	if a.cacheDir != "" {
		path = a.cachePath(paper.ID)
		if data, err := os.ReadFile(path); err == nil && len(data) > 0 {
			return data, nil
		}
	}

	data, err := a.download(ctx, paper.PDFURL)
	if err != nil {
		return nil, err
	}

	if path != "" {
		if err := util.EnsureDir(a.cacheDir); err == nil {
			if err := os.WriteFile(path, data, 0o644); err != nil {
				log.Printf("acquire %s: cache write failed: %v", paper.ID, err)
			}
		}
	}
	return data, nil
}

// download streams the body up to maxBytes; oversized files are truncated
// rather than rejected, trading completeness for latency.
func (a *Acquirer) download(ctx context.Context, pdfURL string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pdfURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("User-Agent", "ResearchMind/1.0 (academic research tool)")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download pdf: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("download pdf: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read pdf body: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("download pdf: empty body")
	}
	return data, nil
}
