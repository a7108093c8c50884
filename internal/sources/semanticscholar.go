package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"researchmind/internal/models"
	"researchmind/internal/util"
)

// SemanticScholarAdapter searches the Semantic Scholar Graph API. It also
// backs the ChemRxiv adapter, which narrows the same search to chemistry
// fields of study.
type SemanticScholarAdapter struct {
	client  *http.Client
	baseURL string
	retry   RetryPolicy
	// politeness delay before every request; the API rate-limits
	// anonymous clients aggressively.
	preDelay time.Duration
}

func NewSemanticScholarAdapter(client *http.Client) *SemanticScholarAdapter {
	return &SemanticScholarAdapter{
		client:   client,
		baseURL:  "https://api.semanticscholar.org/graph/v1/paper/search",
		preDelay: 2 * time.Second,
		retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     10 * time.Second,
			Retryable:   RetryOnRateLimit,
		},
	}
}

type s2Response struct {
	Data []s2Paper `json:"data"`
}

type s2Paper struct {
	PaperID  string `json:"paperId"`
	Title    string `json:"title"`
	Abstract string `json:"abstract"`
	Year     int    `json:"year"`
	Authors  []struct {
		Name string `json:"name"`
	} `json:"authors"`
	OpenAccessPDF *struct {
		URL string `json:"url"`
	} `json:"openAccessPdf"`
}

func (s *SemanticScholarAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	return s.search(ctx, query, maxResults, "", "semantic_", models.SourceSemantic)
}

func (s *SemanticScholarAdapter) search(ctx context.Context, query string, maxResults int, fieldsOfStudy, idPrefix, source string) ([]models.Paper, error) {
	if s.preDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.preDelay):
		}
	}

	status, body, err := s.retry.Do(ctx, s.client, func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("query", strings.TrimSpace(query))
		q.Set("limit", fmt.Sprint(maxResults))
		q.Set("fields", "title,authors,abstract,year,externalIds,openAccessPdf")
		if fieldsOfStudy != "" {
			q.Set("fieldsOfStudy", fieldsOfStudy)
		}
		return http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: semantic scholar; wait 1 minute and retry", util.ErrRateLimited)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: semantic scholar returned status %d", util.ErrSourceUnavailable, status)
	}

	var parsed s2Response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode semantic scholar response: %v", util.ErrSourceUnavailable, err)
	}
	if len(parsed.Data) == 0 {
		return nil, nil
	}

	accessible := make([]models.Paper, 0, len(parsed.Data))
	for _, p := range parsed.Data {
		if p.OpenAccessPDF == nil || p.OpenAccessPDF.URL == "" {
			continue
		}
		accessible = append(accessible, models.Paper{
			ID:        idPrefix + p.PaperID,
			Title:     orDefault(p.Title, "No title"),
			Authors:   s2Authors(p),
			Abstract:  orDefault(p.Abstract, "No abstract available"),
			Published: s2Year(p),
			PDFURL:    p.OpenAccessPDF.URL,
			Source:    source,
		})
	}

	// Open-access filtering emptied a non-empty result set: fall back to
	// abstract-only papers rather than returning nothing.
	if len(accessible) == 0 {
		log.Printf("%s: no open-access PDFs for %q, falling back to abstracts", source, query)
		fallback := make([]models.Paper, 0, len(parsed.Data))
		for _, p := range parsed.Data {
			authors := s2Authors(p)
			abstract := orDefault(p.Abstract, "No abstract available")
			title := orDefault(p.Title, "No title")
			fallback = append(fallback, models.Paper{
				ID:        idPrefix + p.PaperID,
				Title:     title,
				Authors:   authors,
				Abstract:  abstract,
				Published: s2Year(p),
				PDFURL:    models.NoPDF,
				Source:    source,
				FullText:  abstractOnlyText(title, authors, p.Abstract),
			})
		}
		return fallback, nil
	}

	log.Printf("%s: found %d accessible papers for %q", source, len(accessible), query)
	return accessible, nil
}

func s2Authors(p s2Paper) []string {
	out := make([]string, 0, len(p.Authors))
	for _, a := range p.Authors {
		out = append(out, a.Name)
	}
	return out
}

func s2Year(p s2Paper) string {
	if p.Year > 0 {
		return fmt.Sprint(p.Year)
	}
	return "Unknown"
}
