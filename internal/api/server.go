package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"websift/internal/blob"
	"websift/internal/ingest"
	"websift/internal/models"
	"websift/internal/util"
)

type Ingester interface {
	Admit(ctx context.Context, rawURL, userID string) (string, error)
	AdmitBatch(ctx context.Context, rawURLs []string, userID string) ([]string, []models.IngestResult, error)
}

type Retriever interface {
	Phrase(ctx context.Context, phrase, userID string) ([]models.RankedURL, error)
	Opposite(ctx context.Context, phrase, userID string) ([]models.RankedURL, error)
	Words(ctx context.Context, words []string, userID string) ([]models.RankedURL, error)
	Document(ctx context.Context, doc, userID string) ([]models.RankedURL, error)
	URL(ctx context.Context, rawURL, userID string) ([]models.RankedURL, error)
}

// Catalog reads bookkeeping rows: counts, the pending queue and chunk keys.
type Catalog interface {
	Stats(ctx context.Context) (models.Stats, error)
	ListQueue(ctx context.Context, limit int) ([]models.QueueEntry, error)
	ChunkExists(ctx context.Context, contentID string) (bool, error)
}

type Deps struct {
	Ingest     Ingester
	Dispatcher ingest.Dispatcher
	Retrieval  Retriever
	Catalog    Catalog
	Blobs      blob.Store
	Logger     *slog.Logger
}

type Server struct {
	ingest     Ingester
	dispatcher ingest.Dispatcher
	retrieval  Retriever
	catalog    Catalog
	blobs      blob.Store
	log        *slog.Logger
}

func NewServer(d Deps) *Server {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Server{
		ingest:     d.Ingest,
		dispatcher: d.Dispatcher,
		retrieval:  d.Retrieval,
		catalog:    d.Catalog,
		blobs:      d.Blobs,
		log:        d.Logger,
	}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/api/post/url", s.handlePostURL)
	mux.HandleFunc("/api/post/bulk", s.handlePostBulk)
	mux.HandleFunc("/api/get/phrase", s.handlePhrase)
	mux.HandleFunc("/api/get/opposite", s.handleOpposite)
	mux.HandleFunc("/api/get/words", s.handleWords)
	mux.HandleFunc("/api/get/document", s.handleDocument)
	mux.HandleFunc("/api/get/url", s.handleGetURL)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/queue", s.handleQueue)
	mux.HandleFunc("/api/chunks/", s.handleChunk)
	mux.HandleFunc("/api/ingest/status", s.handleIngestStatus)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// request carries every field the endpoints accept. GET endpoints read a JSON
// body when one is sent and fall back to query parameters.
type request struct {
	UserID   string   `json:"user_id"`
	URL      string   `json:"url"`
	URLs     []string `json:"urls"`
	Sentence string   `json:"sentence"`
	Words    []string `json:"words"`
	Document string   `json:"document"`
}

func decodeRequest(r *http.Request) (request, error) {
	var req request
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, 8<<20))
		if err != nil {
			return req, fmt.Errorf("%w: read body: %v", util.ErrValidation, err)
		}
		if len(strings.TrimSpace(string(data))) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				return req, fmt.Errorf("%w: invalid json: %v", util.ErrValidation, err)
			}
		}
	}
	q := r.URL.Query()
	if req.UserID == "" {
		req.UserID = q.Get("user_id")
	}
	if req.URL == "" {
		req.URL = q.Get("url")
	}
	if req.Sentence == "" {
		req.Sentence = q.Get("sentence")
	}
	if req.Document == "" {
		req.Document = q.Get("document")
	}
	if len(req.Words) == 0 {
		for _, w := range q["words"] {
			req.Words = append(req.Words, strings.Split(w, ",")...)
		}
	}
	if len(req.URLs) == 0 {
		req.URLs = q["urls"]
	}
	req.UserID = strings.TrimSpace(req.UserID)
	return req, nil
}

func requireUser(req request) error {
	if req.UserID == "" {
		return fmt.Errorf("%w: user_id is required", util.ErrValidation)
	}
	return nil
}

func (s *Server) handlePostURL(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, err := decodeRequest(r)
	if err == nil {
		err = requireUser(req)
	}
	if err != nil {
		writeResult(w, ingest.Result(req.URL, err))
		return
	}
	url, err := s.ingest.Admit(r.Context(), req.URL, req.UserID)
	if err == nil {
		err = s.dispatcher.Dispatch(r.Context(), url, req.UserID)
	}
	if err != nil {
		s.log.Info("url rejected", "url", req.URL, "user_id", req.UserID, "status", util.StatusOf(err), "err", err)
		if url == "" {
			url = req.URL
		}
		writeResult(w, ingest.Result(url, err))
		return
	}
	writeResult(w, models.IngestResult{URL: url, Status: util.StatusOK, Message: ingest.MessageAccepted})
}

func (s *Server) handlePostBulk(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	req, err := decodeRequest(r)
	if err == nil {
		err = requireUser(req)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	_, results, err := s.ingest.AdmitBatch(r.Context(), req.URLs, req.UserID)
	if err != nil {
		s.log.Info("bulk rejected", "user_id", req.UserID, "urls", len(req.URLs), "status", util.StatusOf(err), "err", err)
		writeFailure(w, err)
		return
	}
	for i, res := range results {
		if res.Status != util.StatusOK {
			continue
		}
		if err := s.dispatcher.Dispatch(r.Context(), res.URL, req.UserID); err != nil {
			s.log.Info("bulk dispatch failed", "url", res.URL, "user_id", req.UserID, "err", err)
			results[i] = ingest.Result(res.URL, err)
		}
	}
	writeStatus(w, util.StatusOK, map[string]any{"message": "URLs uploaded", "results": results})
}

func (s *Server) handlePhrase(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ctx context.Context, req request) ([]models.RankedURL, error) {
		return s.retrieval.Phrase(ctx, req.Sentence, req.UserID)
	})
}

func (s *Server) handleOpposite(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ctx context.Context, req request) ([]models.RankedURL, error) {
		return s.retrieval.Opposite(ctx, req.Sentence, req.UserID)
	})
}

func (s *Server) handleWords(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ctx context.Context, req request) ([]models.RankedURL, error) {
		return s.retrieval.Words(ctx, req.Words, req.UserID)
	})
}

func (s *Server) handleDocument(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ctx context.Context, req request) ([]models.RankedURL, error) {
		return s.retrieval.Document(ctx, req.Document, req.UserID)
	})
}

func (s *Server) handleGetURL(w http.ResponseWriter, r *http.Request) {
	s.query(w, r, func(ctx context.Context, req request) ([]models.RankedURL, error) {
		return s.retrieval.URL(ctx, req.URL, req.UserID)
	})
}

func (s *Server) query(w http.ResponseWriter, r *http.Request, fn func(context.Context, request) ([]models.RankedURL, error)) {
	if !allow(w, r, http.MethodGet, http.MethodPost) {
		return
	}
	req, err := decodeRequest(r)
	if err == nil {
		err = requireUser(req)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	urls, err := fn(r.Context(), req)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if urls == nil {
		urls = []models.RankedURL{}
	}
	writeStatus(w, util.StatusOK, map[string]any{"urls": urls})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	st, err := s.catalog.Stats(r.Context())
	if err != nil {
		s.log.Error("stats failed", "err", err)
		writeFailure(w, err)
		return
	}
	writeStatus(w, util.StatusOK, map[string]any{
		"pages":    st.Pages,
		"chunks":   st.Chunks,
		"requests": st.Requests,
		"queued":   st.Queued,
	})
}

// handleQueue lists URLs admitted but not yet stored, oldest first. Entries
// left behind by failed ingestions stay here until resubmitted.
func (s *Server) handleQueue(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeFailure(w, fmt.Errorf("%w: limit must be a non-negative integer", util.ErrValidation))
			return
		}
		limit = n
	}
	entries, err := s.catalog.ListQueue(r.Context(), limit)
	if err != nil {
		s.log.Error("queue listing failed", "err", err)
		writeFailure(w, err)
		return
	}
	writeStatus(w, util.StatusOK, map[string]any{"queue": entries})
}

func (s *Server) handleChunk(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	key := strings.Trim(strings.TrimPrefix(r.URL.Path, "/api/chunks/"), "/")
	if key == "" || strings.Contains(key, "/") {
		writeFailure(w, fmt.Errorf("%w: content id is required", util.ErrValidation))
		return
	}
	known, err := s.catalog.ChunkExists(r.Context(), key)
	if err == nil && !known {
		err = fmt.Errorf("%w: unknown content id %s", util.ErrValidation, key)
	}
	if err != nil {
		writeFailure(w, err)
		return
	}
	data, err := s.blobs.Get(r.Context(), key)
	if err != nil {
		if errors.Is(err, blob.ErrNotFound) {
			writeFailure(w, fmt.Errorf("%w: unknown content id %s", util.ErrValidation, key))
			return
		}
		s.log.Error("chunk download failed", "content_id", key, "err", err)
		writeFailure(w, err)
		return
	}
	writeStatus(w, util.StatusOK, map[string]any{"content_id": key, "content": string(data)})
}

func (s *Server) handleIngestStatus(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	url, err := ingest.NormalizeURL(r.URL.Query().Get("url"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	p, err := s.dispatcher.Progress(r.Context(), url)
	if err != nil {
		if !errors.Is(err, ingest.ErrUnknownIngestion) {
			s.log.Error("ingest status failed", "url", url, "err", err)
		}
		writeFailure(w, err)
		return
	}
	writeStatus(w, util.StatusOK, map[string]any{"progress": p})
}

func allow(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, m := range methods {
		if r.Method == m {
			return true
		}
	}
	writeJSON(w, http.StatusMethodNotAllowed, map[string]any{
		"status":  util.StatusBadRequest,
		"message": "This endpoint does not support the requested method.",
	})
	return false
}

// httpCode maps a body status onto the HTTP status line. Duplicates are not
// an HTTP redirect, so 300 travels as 200.
func httpCode(status int) int {
	if status == util.StatusDuplicate {
		return http.StatusOK
	}
	return status
}

func writeStatus(w http.ResponseWriter, status int, body map[string]any) {
	body["status"] = status
	writeJSON(w, httpCode(status), body)
}

func writeResult(w http.ResponseWriter, res models.IngestResult) {
	writeJSON(w, httpCode(res.Status), res)
}

// writeFailure reports err by its taxonomy status. Only validation errors
// expose their message.
func writeFailure(w http.ResponseWriter, err error) {
	status := util.StatusOf(err)
	msg := "Internal server error"
	switch status {
	case util.StatusBadRequest:
		msg = err.Error()
	case util.StatusUnauthorized:
		msg = "User is unauthorized"
	case util.StatusDuplicate:
		msg = "This URL already exists in the DB"
	}
	writeStatus(w, status, map[string]any{"message": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
