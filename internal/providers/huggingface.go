package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultHFEmbedModel = "sentence-transformers/all-MiniLM-L6-v2"

// HuggingFaceProvider produces embeddings via the HuggingFace Inference API
// feature-extraction pipeline. One request per input text.
type HuggingFaceProvider struct {
	keyName string
	apiKey  string
	model   string
	client  *http.Client
}

func NewHuggingFaceProvider(keyName string) *HuggingFaceProvider {
	model := strings.TrimSpace(os.Getenv("RESEARCHMIND_HF_EMBED_MODEL"))
	if model == "" {
		model = defaultHFEmbedModel
	}
	return &HuggingFaceProvider{
		keyName: keyName,
		apiKey:  resolveHFKey(keyName),
		model:   model,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (h *HuggingFaceProvider) Embed(ctx context.Context, req EmbedRequest) ([][]float32, ProviderInfo, error) {
	info := ProviderInfo{Name: "huggingface", Model: h.model, Key: h.keyName}
	if h.apiKey == "" {
		return nil, info, fmt.Errorf("huggingface token missing for alias %q", h.keyName)
	}
	if len(req.Inputs) == 0 {
		return nil, info, fmt.Errorf("no embedding inputs")
	}
	url := "https://api-inference.huggingface.co/pipeline/feature-extraction/" + h.model
	out := make([][]float32, 0, len(req.Inputs))
	for _, text := range req.Inputs {
		payload, _ := json.Marshal(map[string]any{"inputs": text})
		httpReq, _ := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		httpReq.Header.Set("Authorization", "Bearer "+h.apiKey)
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := h.client.Do(httpReq)
		if err != nil {
			return nil, info, fmt.Errorf("huggingface embedding request failed: %w", err)
		}
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if resp.StatusCode >= 400 {
			return nil, info, fmt.Errorf("huggingface embedding error %d: %s", resp.StatusCode, string(body))
		}
		vec, err := parseFeatureExtraction(body)
		if err != nil {
			return nil, info, err
		}
		out = append(out, vec)
	}
	return out, info, nil
}

// parseFeatureExtraction accepts both response shapes the pipeline returns:
// a flat vector for sentence models and a token matrix for raw models, which
// is mean-pooled into one vector.
func parseFeatureExtraction(body []byte) ([]float32, error) {
	var flat []float32
	if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
		return flat, nil
	}
	var matrix [][]float32
	if err := json.Unmarshal(body, &matrix); err != nil || len(matrix) == 0 {
		return nil, fmt.Errorf("decode huggingface embedding response: %s", string(body))
	}
	dim := len(matrix[0])
	pooled := make([]float32, dim)
	for _, row := range matrix {
		for i := 0; i < dim && i < len(row); i++ {
			pooled[i] += row[i]
		}
	}
	n := float32(len(matrix))
	for i := range pooled {
		pooled[i] /= n
	}
	return pooled, nil
}

func resolveHFKey(alias string) string {
	if alias != "" {
		if v := os.Getenv("RESEARCHMIND_HF_KEY_" + strings.ToUpper(alias)); v != "" {
			return v
		}
	}
	return os.Getenv("HF_API_TOKEN")
}
