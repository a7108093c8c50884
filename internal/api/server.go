package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

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
	"researchmind/internal/util"
	"researchmind/internal/vectorstore"
	"researchmind/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

const defaultMaxResults = 5

type Server struct {
	cfg       config.Config
	store     vectorstore.Store
	pipeline  *ingest.Pipeline
	retriever *retriever.Retriever
	synth     *answer.Synthesizer
	extractor acquire.PDFExtractor
	temporal  tclient.Client
}

func NewServer(cfg config.Config) (*Server, error) {
	store, err := vectorstore.Open(cfg)
	if err != nil {
		return nil, err
	}
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	ch := chunker.New(cfg.ChunkSize, cfg.ChunkOverlap, cfg.MaxChunks)
	emb := embed.NewBatcher(pm.FirstEmbedProvider(), cfg.EmbedDim, cfg.EmbedBatchSize, time.Duration(cfg.EmbedBatchDelay)*time.Millisecond)
	acq := acquire.New(nil, acquire.PDFExtractor{}, cfg.PDFCacheDir, cfg.MaxPDFBytes, time.Duration(cfg.DownloadTimeoutSecs)*time.Second)
	s := &Server{
		cfg:       cfg,
		store:     store,
		pipeline:  ingest.NewPipeline(sources.NewRegistry(nil), acq, ch, emb, store, cfg.IngestMaxChildren),
		retriever: retriever.New(emb, store),
		synth:     answer.New(pm.FirstLLMProvider(), cfg.Temperature, cfg.MaxAnswerTokens),
	}

	// Temporal is optional; the synchronous and streaming ingest paths work
	// without a running server. Async endpoints report 503 when absent.
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		log.Printf("api: temporal unavailable at %s: %v", cfg.TemporalAddress, err)
	} else {
		s.temporal = tc
	}
	return s, nil
}

func (s *Server) Close() {
	if s.temporal != nil {
		s.temporal.Close()
	}
	_ = s.store.Close()
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/ingest", s.handleIngest)
	mux.HandleFunc("/api/ingest-progress", s.handleIngestProgress)
	mux.HandleFunc("/api/ingest-async", s.handleIngestAsync)
	mux.HandleFunc("/api/ingest-async/progress", s.handleIngestAsyncProgress)
	mux.HandleFunc("/api/upload", s.handleUpload)
	mux.HandleFunc("/api/ask", s.handleAsk)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/clear", s.handleClear)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

type ingestRequest struct {
	Query      string `json:"query"`
	Source     string `json:"source"`
	MaxResults int    `json:"max_results"`
}

func (r ingestRequest) normalized() (ingestRequest, error) {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return r, fmt.Errorf("query is required")
	}
	if r.MaxResults <= 0 {
		r.MaxResults = defaultMaxResults
	}
	return r, nil
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req, err := req.normalized()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	res, err := s.pipeline.RunParallel(r.Context(), req.Query, req.Source, req.MaxResults)
	if err != nil {
		writeErr(w, ingestStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleIngestProgress streams the ingestion's event sequence as
// server-sent events. Query parameters mirror the JSON body of /api/ingest
// since EventSource cannot POST.
func (s *Server) handleIngestProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	req := ingestRequest{
		Query:  r.URL.Query().Get("query"),
		Source: r.URL.Query().Get("source"),
	}
	if n, err := strconv.Atoi(r.URL.Query().Get("max_results")); err == nil {
		req.MaxResults = n
	}
	req, err := req.normalized()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sink := ingest.Sink(func(e ingest.Event) {
		payload, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	})
	if _, err := s.pipeline.Run(r.Context(), req.Query, req.Source, req.MaxResults, sink); err != nil {
		// The terminal error event has already been streamed.
		log.Printf("api: streaming ingest failed: %v", err)
	}
}

func (s *Server) handleIngestAsync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("temporal unavailable"))
		return
	}
	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req, err := req.normalized()
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}

	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       "ingest-" + uuid.NewString(),
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.IngestWorkflow, workflows.IngestInput{
		Query:                 req.Query,
		Source:                req.Source,
		MaxResults:            req.MaxResults,
		MaxConcurrentChildren: s.cfg.IngestMaxChildren,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleIngestAsyncProgress(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if s.temporal == nil {
		writeErr(w, http.StatusServiceUnavailable, fmt.Errorf("temporal unavailable"))
		return
	}
	workflowID := r.URL.Query().Get("workflow_id")
	if workflowID == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("workflow_id is required"))
		return
	}
	resp, err := s.temporal.QueryWorkflow(r.Context(), workflowID, "", workflows.QueryGetProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	var prog workflows.IngestProgress
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}
	defer file.Close()
	if !strings.EqualFold(filepath.Ext(header.Filename), ".pdf") {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("only pdf files are accepted"))
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("read upload: %w", err))
		return
	}

	text, err := s.extractor.Extract(data)
	if err != nil {
		writeErr(w, http.StatusUnprocessableEntity, util.ErrNoExtractableText)
		return
	}

	title := strings.TrimSuffix(header.Filename, filepath.Ext(header.Filename))
	// Content-addressed id: re-uploading the same file replaces its chunks
	// instead of duplicating them.
	paper := models.Paper{
		ID:        "upload_" + util.SHA256Hex(data)[:16],
		Title:     title,
		Authors:   []string{"Unknown"},
		Published: "Unknown",
		PDFURL:    models.NoPDF,
		Source:    models.SourceUpload,
		FullText:  text,
	}

	indexed, err := s.pipeline.IngestPaper(r.Context(), paper)
	if err != nil {
		if errors.Is(err, util.ErrNoUsableContent) {
			writeErr(w, http.StatusUnprocessableEntity, err)
			return
		}
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paper": indexed.Summarize(), "stats": stats})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		Question string `json:"question"`
		TopK     int    `json:"top_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
		return
	}
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("question is required"))
		return
	}
	if req.TopK <= 0 {
		req.TopK = s.cfg.DefaultTopK
	}

	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	if stats.TotalChunks == 0 {
		writeErr(w, http.StatusBadRequest, util.ErrEmptyCorpus)
		return
	}

	retrieved, err := s.retriever.Retrieve(r.Context(), req.Question, req.TopK)
	if err != nil {
		writeErr(w, providerStatus(err), err)
		return
	}
	ans, err := s.synth.Synthesize(r.Context(), req.Question, retrieved)
	if err != nil {
		writeErr(w, providerStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	if err := s.store.Clear(r.Context()); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func providerStatus(err error) int {
	switch providers.ClassifyError(err) {
	case providers.ErrorRate, providers.ErrorQuota:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

func ingestStatus(err error) int {
	switch {
	case errors.Is(err, util.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, util.ErrSourceUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "RM-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case status == http.StatusBadGateway:
			return apiError{Code: "RM-API-5020", Message: "Upstream provider unavailable. Retry shortly."}
		case status == http.StatusServiceUnavailable:
			return apiError{Code: "RM-API-5030", Message: "Async ingestion requires a running Temporal server."}
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{Code: "RM-API-5002", Message: "A backing service is unavailable. Check local services and retry."}
		default:
			return apiError{Code: "RM-API-5000", Message: "Internal server error. Please retry or check service logs."}
		}
	case status == http.StatusBadRequest:
		code = "RM-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "RM-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusMethodNotAllowed:
		code = "RM-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusConflict:
		code = "RM-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusUnprocessableEntity:
		code = "RM-API-4022"
		msg = "The PDF contains no extractable text."
	case status == http.StatusTooManyRequests:
		code = "RM-API-4029"
		msg = "An upstream service is rate limiting requests. Wait and retry."
	}

	if status >= 400 && status < 500 && err != nil {
		switch {
		case strings.Contains(raw, "query is required"):
			msg = "A search query is required."
		case strings.Contains(raw, "question is required"):
			msg = "A question is required."
		case strings.Contains(raw, "workflow_id is required"):
			msg = "A workflow_id query parameter is required."
		case strings.Contains(raw, "no files provided"):
			msg = "No PDF file was provided."
		case strings.Contains(raw, "only pdf files"):
			msg = "Only PDF files are accepted."
		case strings.Contains(raw, "invalid json"):
			msg = "Malformed JSON request body."
		case errors.Is(err, util.ErrEmptyCorpus):
			msg = "No papers are indexed yet. Ingest some papers first."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
