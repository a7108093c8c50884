// Package answer builds a grounded prompt from retrieved chunks and asks
// the generative model for a cited answer.
package answer

import (
	"context"
	"fmt"
	"strings"

	"researchmind/internal/models"
	"researchmind/internal/providers"
)

// NoInformationAnswer is returned without a model call when retrieval
// produced nothing.
const NoInformationAnswer = "I couldn't find relevant information in the stored papers."

const (
	DefaultTemperature = 0.3
	DefaultMaxTokens   = 1024
)

type Synthesizer struct {
	llm         providers.LLMProvider
	temperature float64
	maxTokens   int
}

func New(llm providers.LLMProvider, temperature float64, maxTokens int) *Synthesizer {
	if temperature <= 0 {
		temperature = DefaultTemperature
	}
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	return &Synthesizer{llm: llm, temperature: temperature, maxTokens: maxTokens}
}

// Synthesize asks the model for an answer restricted to the retrieved
// context. Citations list what was retrieved, numbered in retrieval-rank
// order, regardless of which sources the model's text actually references.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, retrieved []models.RetrievedChunk) (models.Answer, error) {
	if len(retrieved) == 0 {
		return models.Answer{Answer: NoInformationAnswer, Citations: []models.Citation{}}, nil
	}

	resp, _, err := s.llm.Generate(ctx, providers.GenerateRequest{
		Operation:   "rag_answer",
		Prompt:      buildPrompt(question, retrieved),
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return models.Answer{}, fmt.Errorf("generate answer: %w", err)
	}

	citations := make([]models.Citation, 0, len(retrieved))
	for i, chunk := range retrieved {
		citations = append(citations, models.Citation{
			Number:    i + 1,
			Title:     chunk.Source.Title,
			Authors:   chunk.Source.Authors,
			Published: chunk.Source.Published,
			PDFURL:    chunk.Source.PDFURL,
		})
	}
	return models.Answer{Answer: strings.TrimSpace(resp.Text), Citations: citations}, nil
}

func buildPrompt(question string, retrieved []models.RetrievedChunk) string {
	blocks := make([]string, 0, len(retrieved))
	for i, chunk := range retrieved {
		blocks = append(blocks, fmt.Sprintf(
			"[Source %d]\nPaper: %s\nAuthors: %s\nPublished: %s\nContent: %s",
			i+1, chunk.Source.Title, chunk.Source.Authors, chunk.Source.Published, chunk.Text))
	}
	contextBlock := strings.Join(blocks, "\n\n")

	return `You are an expert research assistant helping academics understand scientific papers.

Your job is to answer the question below using ONLY the provided context from research papers.

Rules:
- Answer based ONLY on the provided context
- Always cite which source you used like this: [Source 1], [Source 2]
- If the context doesn't contain enough info, say so clearly
- Be precise and academic in tone
- Do NOT make up information

CONTEXT FROM RESEARCH PAPERS:
` + contextBlock + `

QUESTION: ` + question + `

ANSWER (with citations):`
}
