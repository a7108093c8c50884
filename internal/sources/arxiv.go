package sources

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"researchmind/internal/models"
	"researchmind/internal/util"
)

// ArxivAdapter searches the arXiv Atom API. arXiv signals rate limiting by
// returning a plain-text error page instead of a feed, so the retry
// predicate checks the body shape rather than the status code.
type ArxivAdapter struct {
	client  *http.Client
	baseURL string
	retry   RetryPolicy
}

func NewArxivAdapter(client *http.Client) *ArxivAdapter {
	return &ArxivAdapter{
		client:  client,
		baseURL: "https://export.arxiv.org/api/query",
		retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
			Retryable: func(status int, body []byte, err error) bool {
				if err != nil || status == http.StatusTooManyRequests {
					return true
				}
				return !bytes.HasPrefix(bytes.TrimSpace(body), []byte("<"))
			},
		},
	}
}

type atomFeed struct {
	Entries []atomEntry `xml:"entry"`
}

type atomEntry struct {
	ID        string `xml:"id"`
	Title     string `xml:"title"`
	Summary   string `xml:"summary"`
	Published string `xml:"published"`
	Authors   []struct {
		Name string `xml:"name"`
	} `xml:"author"`
}

func (a *ArxivAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	status, body, err := a.retry.Do(ctx, a.client, func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("search_query", "all:"+query)
		q.Set("max_results", fmt.Sprint(maxResults))
		q.Set("sortBy", "relevance")
		return http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(bytes.TrimSpace(body), []byte("<")) {
		return nil, fmt.Errorf("%w: arxiv; wait 30 seconds and retry", util.ErrRateLimited)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: arxiv returned status %d", util.ErrSourceUnavailable, status)
	}

	var feed atomFeed
	if err := xml.Unmarshal(body, &feed); err != nil {
		return nil, fmt.Errorf("%w: decode arxiv feed: %v", util.ErrSourceUnavailable, err)
	}
	if len(feed.Entries) == 0 {
		return nil, nil
	}

	papers := make([]models.Paper, 0, len(feed.Entries))
	for _, e := range feed.Entries {
		arxivID := e.ID
		if i := strings.Index(arxivID, "/abs/"); i >= 0 {
			arxivID = arxivID[i+len("/abs/"):]
		}
		authors := make([]string, 0, len(e.Authors))
		for _, au := range e.Authors {
			authors = append(authors, strings.TrimSpace(au.Name))
		}
		papers = append(papers, models.Paper{
			ID:        "arxiv_" + strings.ReplaceAll(arxivID, "/", "_"),
			Title:     strings.TrimSpace(strings.ReplaceAll(e.Title, "\n", " ")),
			Authors:   authors,
			Abstract:  strings.TrimSpace(strings.ReplaceAll(e.Summary, "\n", " ")),
			Published: yearOrUnknown(e.Published),
			PDFURL:    "https://arxiv.org/pdf/" + arxivID + ".pdf",
			Source:    models.SourceArxiv,
		})
	}
	log.Printf("arxiv: found %d papers for %q", len(papers), query)
	return papers, nil
}
