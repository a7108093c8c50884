package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"researchmind/internal/acquire"
	"researchmind/internal/answer"
	"researchmind/internal/chunker"
	"researchmind/internal/config"
	"researchmind/internal/embed"
	"researchmind/internal/ingest"
	"researchmind/internal/models"
	"researchmind/internal/providers"
	"researchmind/internal/retriever"
	"researchmind/internal/sources"
	"researchmind/internal/vectorstore"
)

type stubAdapter struct {
	papers []models.Paper
}

func (s stubAdapter) Search(ctx context.Context, query string, maxResults int) ([]models.Paper, error) {
	_ = ctx
	return s.papers, nil
}

func testPaper(id string) models.Paper {
	words := make([]string, 120)
	for i := range words {
		words[i] = fmt.Sprintf("lexeme%04d", i)
	}
	return models.Paper{
		ID:       id,
		Title:    "Paper " + id,
		Authors:  []string{"Author"},
		PDFURL:   models.NoPDF,
		Source:   models.SourceArxiv,
		FullText: strings.Join(words, " "),
	}
}

func newTestServer(papers []models.Paper) *Server {
	registry := sources.NewRegistry(nil)
	registry.Register(models.SourceArxiv, stubAdapter{papers: papers})

	mock := providers.NewMockProvider(8)
	store := vectorstore.NewMemoryStore()
	ch := chunker.New(40, 4, 15)
	emb := embed.NewBatcher(mock, 8, 5, 0)
	acq := acquire.New(nil, nil, "", 0, 0)

	return &Server{
		cfg: config.Config{
			DefaultTopK:       3,
			MaxUploadBytes:    1 << 20,
			Temperature:       0.3,
			MaxAnswerTokens:   256,
			IngestMaxChildren: 2,
		},
		store:     store,
		pipeline:  ingest.NewPipeline(registry, acq, ch, emb, store, 2),
		retriever: retriever.New(emb, store),
		synth:     answer.New(mock, 0.3, 256),
	}
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := newTestServer(nil).Routes()
	w := doJSON(t, h, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestAskEmptyCorpus(t *testing.T) {
	h := newTestServer(nil).Routes()
	w := doJSON(t, h, http.MethodPost, "/api/ask", `{"question":"what is graphene?"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on empty corpus, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Ingest some papers first") {
		t.Fatalf("expected empty-corpus guidance, got %s", w.Body.String())
	}
}

func TestAskValidation(t *testing.T) {
	h := newTestServer(nil).Routes()
	if w := doJSON(t, h, http.MethodPost, "/api/ask", `{"question":"   "}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank question, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodPost, "/api/ask", `{broken`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid json, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/api/ask", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestIngestThenAskAndClear(t *testing.T) {
	h := newTestServer([]models.Paper{testPaper("arxiv_1"), testPaper("arxiv_2")}).Routes()

	w := doJSON(t, h, http.MethodPost, "/api/ingest", `{"query":"graphene","source":"arxiv"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ingest failed: %d %s", w.Code, w.Body.String())
	}
	var res ingest.Result
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode ingest result: %v", err)
	}
	if res.Found != 2 || len(res.Indexed) != 2 {
		t.Fatalf("unexpected ingest result: %+v", res)
	}
	if res.Message != "Successfully indexed 2 of 2 papers" {
		t.Fatalf("unexpected message: %q", res.Message)
	}

	w = doJSON(t, h, http.MethodGet, "/api/stats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("stats failed: %d", w.Code)
	}
	var stats vectorstore.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalPapers != 2 || stats.TotalChunks == 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	w = doJSON(t, h, http.MethodPost, "/api/ask", `{"question":"what is lexeme0001?"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ask failed: %d %s", w.Code, w.Body.String())
	}
	var ans models.Answer
	if err := json.Unmarshal(w.Body.Bytes(), &ans); err != nil {
		t.Fatalf("decode answer: %v", err)
	}
	if ans.Answer == "" {
		t.Fatal("expected non-empty answer")
	}
	if len(ans.Citations) == 0 || len(ans.Citations) > 3 {
		t.Fatalf("expected 1..3 citations, got %d", len(ans.Citations))
	}
	for i, c := range ans.Citations {
		if c.Number != i+1 {
			t.Fatalf("citation %d numbered %d", i, c.Number)
		}
	}

	w = doJSON(t, h, http.MethodDelete, "/api/clear", "")
	if w.Code != http.StatusOK {
		t.Fatalf("clear failed: %d", w.Code)
	}
	w = doJSON(t, h, http.MethodGet, "/api/stats", "")
	_ = json.Unmarshal(w.Body.Bytes(), &stats)
	if stats.TotalChunks != 0 {
		t.Fatalf("expected empty store after clear, got %+v", stats)
	}
}

func TestIngestValidation(t *testing.T) {
	h := newTestServer(nil).Routes()
	if w := doJSON(t, h, http.MethodPost, "/api/ingest", `{"query":""}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank query, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/api/ingest", ""); w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

func TestIngestProgressStreamsEvents(t *testing.T) {
	h := newTestServer([]models.Paper{testPaper("arxiv_1")}).Routes()

	req := httptest.NewRequest(http.MethodGet, "/api/ingest-progress?query=graphene&source=arxiv", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type: %q", ct)
	}
	body := w.Body.String()
	lines := []string{}
	for _, l := range strings.Split(body, "\n") {
		if strings.HasPrefix(l, "data: ") {
			lines = append(lines, strings.TrimPrefix(l, "data: "))
		}
	}
	if len(lines) < 4 {
		t.Fatalf("expected multiple events, got %d: %s", len(lines), body)
	}

	var first, last ingest.Event
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil {
		t.Fatalf("decode first event: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &last); err != nil {
		t.Fatalf("decode last event: %v", err)
	}
	if first.Type != ingest.EventSearchStarted {
		t.Fatalf("unexpected first event: %+v", first)
	}
	if last.Type != ingest.EventDone || last.Progress != 100 {
		t.Fatalf("unexpected last event: %+v", last)
	}
}

func TestUploadRejectsNonPDF(t *testing.T) {
	h := newTestServer(nil).Routes()

	var buf strings.Builder
	boundary := "testboundary"
	buf.WriteString("--" + boundary + "\r\n")
	buf.WriteString("Content-Disposition: form-data; name=\"file\"; filename=\"notes.txt\"\r\n")
	buf.WriteString("Content-Type: text/plain\r\n\r\n")
	buf.WriteString("plain text\r\n")
	buf.WriteString("--" + boundary + "--\r\n")

	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader(buf.String()))
	req.Header.Set("Content-Type", "multipart/form-data; boundary="+boundary)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for non-pdf upload, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Only PDF files") {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestUploadRequiresFile(t *testing.T) {
	h := newTestServer(nil).Routes()
	req := httptest.NewRequest(http.MethodPost, "/api/upload", strings.NewReader("--b--\r\n"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=b")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing file, got %d", w.Code)
	}
}

func TestAsyncEndpointsWithoutTemporal(t *testing.T) {
	h := newTestServer(nil).Routes()
	if w := doJSON(t, h, http.MethodPost, "/api/ingest-async", `{"query":"graphene"}`); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without temporal, got %d", w.Code)
	}
	if w := doJSON(t, h, http.MethodGet, "/api/ingest-async/progress?workflow_id=x", ""); w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without temporal, got %d", w.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newTestServer(nil).Routes()
	req := httptest.NewRequest(http.MethodOptions, "/api/ask", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", w.Code)
	}
	if w.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatal("missing CORS header")
	}
}
