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

// EuropePMCAdapter searches Europe PMC, which aggregates PubMed and PMC
// with direct open-access full-text links.
type EuropePMCAdapter struct {
	client  *http.Client
	baseURL string
	retry   RetryPolicy
}

func NewEuropePMCAdapter(client *http.Client) *EuropePMCAdapter {
	return &EuropePMCAdapter{
		client:  client,
		baseURL: "https://www.ebi.ac.uk/europepmc/webservices/rest/search",
		retry: RetryPolicy{
			MaxAttempts: 3,
			Backoff:     5 * time.Second,
			Retryable:   RetryOnRateLimit,
		},
	}
}

type epmcResponse struct {
	ResultList struct {
		Result []epmcResult `json:"result"`
	} `json:"resultList"`
}

type epmcResult struct {
	ID                   string `json:"id"`
	Title                string `json:"title"`
	AbstractText         string `json:"abstractText"`
	FirstPublicationDate string `json:"firstPublicationDate"`
	IsOpenAccess         string `json:"isOpenAccess"`
	AuthorList           *struct {
		Author []struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
			FullName  string `json:"fullName"`
		} `json:"author"`
	} `json:"authorList"`
	FullTextURLList *struct {
		FullTextURL []struct {
			DocumentStyle string `json:"documentStyle"`
			URL           string `json:"url"`
		} `json:"fullTextUrl"`
	} `json:"fullTextUrlList"`
}

func (e *EuropePMCAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	status, body, err := e.retry.Do(ctx, e.client, func(ctx context.Context) (*http.Request, error) {
		q := url.Values{}
		q.Set("query", query)
		q.Set("format", "json")
		q.Set("pageSize", fmt.Sprint(maxResults))
		q.Set("resultType", "core")
		return http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+q.Encode(), nil)
	})
	if err != nil {
		return nil, err
	}
	if status == http.StatusTooManyRequests {
		return nil, fmt.Errorf("%w: europe pmc; wait and retry", util.ErrRateLimited)
	}
	if status >= 400 {
		return nil, fmt.Errorf("%w: europe pmc returned status %d", util.ErrSourceUnavailable, status)
	}

	var parsed epmcResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: decode europe pmc response: %v", util.ErrSourceUnavailable, err)
	}
	results := parsed.ResultList.Result
	if len(results) == 0 {
		return nil, nil
	}

	papers := make([]models.Paper, 0, len(results))
	for _, r := range results {
		if r.IsOpenAccess != "Y" || r.FullTextURLList == nil {
			continue
		}
		pdfURL := ""
		for _, u := range r.FullTextURLList.FullTextURL {
			if strings.EqualFold(u.DocumentStyle, "pdf") {
				pdfURL = u.URL
				break
			}
		}
		if pdfURL == "" && len(r.FullTextURLList.FullTextURL) > 0 {
			pdfURL = r.FullTextURLList.FullTextURL[0].URL
		}
		if pdfURL == "" {
			continue
		}
		papers = append(papers, models.Paper{
			ID:        "pubmed_" + r.ID,
			Title:     orDefault(r.Title, "No title"),
			Authors:   epmcAuthors(r),
			Abstract:  orDefault(r.AbstractText, "No abstract available"),
			Published: yearOrUnknown(r.FirstPublicationDate),
			PDFURL:    pdfURL,
			Source:    models.SourcePubMed,
		})
	}

	// Same fallback discipline as the other catalogs: abstract-only papers
	// beat an empty answer when raw results existed.
	if len(papers) == 0 {
		log.Printf("pubmed: no open-access PDFs for %q, falling back to abstracts", query)
		fallback := make([]models.Paper, 0, len(results))
		for _, r := range results {
			authors := epmcAuthors(r)
			abstract := orDefault(r.AbstractText, "No abstract available")
			title := orDefault(r.Title, "No title")
			fallback = append(fallback, models.Paper{
				ID:        "pubmed_" + r.ID,
				Title:     title,
				Authors:   authors,
				Abstract:  abstract,
				Published: yearOrUnknown(r.FirstPublicationDate),
				PDFURL:    models.NoPDF,
				Source:    models.SourcePubMed,
				FullText:  abstractOnlyText(title, authors, r.AbstractText),
			})
		}
		return fallback, nil
	}

	log.Printf("pubmed: found %d open-access papers for %q", len(papers), query)
	return papers, nil
}

func epmcAuthors(r epmcResult) []string {
	if r.AuthorList == nil {
		return nil
	}
	out := make([]string, 0, len(r.AuthorList.Author))
	for _, a := range r.AuthorList.Author {
		name := strings.TrimSpace(a.FirstName + " " + a.LastName)
		if name == "" {
			name = strings.TrimSpace(a.FullName)
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out
}
