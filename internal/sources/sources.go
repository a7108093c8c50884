// Package sources queries external paper catalogs and normalizes their
// results: display-name authors, 4-digit publication years (or "Unknown"),
// source-prefixed ids, and open-access PDF filtering with an abstract-only
// fallback when filtering would empty a non-empty result set.
package sources

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"researchmind/internal/models"
)

const userAgent = "ResearchMind/1.0 (academic research tool)"

// Adapter searches one external catalog. "No results" is an empty list,
// never an error; errors mean transport or protocol failure after the
// adapter's retry policy is exhausted.
type Adapter interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error)
}

type Registry struct {
	adapters map[string]Adapter
}

func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	semantic := NewSemanticScholarAdapter(client)
	return &Registry{adapters: map[string]Adapter{
		models.SourceArxiv:    NewArxivAdapter(client),
		models.SourceSemantic: semantic,
		models.SourcePubMed:   NewEuropePMCAdapter(client),
		models.SourceChemRxiv: NewChemRxivAdapter(semantic),
	}}
}

// Register installs or replaces the adapter for a source kind.
func (r *Registry) Register(kind string, a Adapter) {
	r.adapters[strings.ToLower(strings.TrimSpace(kind))] = a
}

// ForKind returns the adapter for the given source kind, defaulting to
// arxiv for unknown kinds.
func (r *Registry) ForKind(kind string) Adapter {
	if a, ok := r.adapters[strings.ToLower(strings.TrimSpace(kind))]; ok {
		return a
	}
	return r.adapters[models.SourceArxiv]
}

var yearRe = regexp.MustCompile(`\b(1[89]\d{2}|2\d{3})\b`)

// yearOrUnknown reduces a date or year string to a 4-digit year.
func yearOrUnknown(s string) string {
	if m := yearRe.FindString(s); m != "" {
		return m
	}
	return "Unknown"
}

// abstractOnlyText synthesizes degraded full text for papers without a
// retrievable file, so acquisition can skip the download entirely.
func abstractOnlyText(title string, authors []string, abstract string) string {
	return fmt.Sprintf("%s\n\nAuthors: %s\n\nAbstract: %s", title, strings.Join(authors, ", "), abstract)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
