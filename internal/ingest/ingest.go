// Package ingest turns a submitted URL into a stored page: admission checks,
// fetch, summary, chunk embeddings, document embedding and persistence.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"websift/internal/blob"
	"websift/internal/chunker"
	"websift/internal/fetch"
	"websift/internal/models"
	"websift/internal/summarize"
	"websift/internal/util"

	"github.com/google/uuid"
)

type Store interface {
	PageExists(ctx context.Context, url string) (bool, error)
	UserExists(ctx context.Context, userID string) (bool, error)
	InsertSuggestion(ctx context.Context, url string) error
	Enqueue(ctx context.Context, url, addedBy string) error
	SaveIngested(ctx context.Context, p models.Page, chunks []models.Chunk) error
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, headings []string, body string) (summarize.Summary, error)
}

type Chunker interface {
	Chunk(ctx context.Context, text string, windowTokens int, overlap float64, dim int) ([]chunker.Window, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string, dim int) ([]float32, error)
}

type Options struct {
	WindowTokens int
	Overlap      float64
	ChunkDim     int
	DocumentDim  int

	// DocumentTokens bounds the text sent for the whole-document embedding.
	// Zero sends the full body.
	DocumentTokens int
}

type Deps struct {
	Store      Store
	Blobs      blob.Store
	Fetcher    Fetcher
	Summarizer Summarizer
	Chunker    Chunker
	Embedder   Embedder
	Logger     *slog.Logger

	// Tokenizer measures the document-embedding input; nil disables the bound.
	Tokenizer chunker.Tokenizer

	// Now and NewID default to time.Now and uuid.NewString.
	Now   func() time.Time
	NewID func() string
}

type Orchestrator struct {
	store      Store
	blobs      blob.Store
	fetcher    Fetcher
	summarizer Summarizer
	chunker    Chunker
	embedder   Embedder
	tokenizer  chunker.Tokenizer
	opts       Options
	log        *slog.Logger
	now        func() time.Time
	newID      func() string
}

func New(d Deps, opts Options) *Orchestrator {
	o := &Orchestrator{
		store:      d.Store,
		blobs:      d.Blobs,
		fetcher:    d.Fetcher,
		summarizer: d.Summarizer,
		chunker:    d.Chunker,
		embedder:   d.Embedder,
		tokenizer:  d.Tokenizer,
		opts:       opts,
		log:        d.Logger,
		now:        d.Now,
		newID:      d.NewID,
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newID == nil {
		o.newID = uuid.NewString
	}
	return o
}

// Admit runs the synchronous part of ingestion: normalize, duplicate check,
// authorization and enqueue. It returns the normalized URL on success.
func (o *Orchestrator) Admit(ctx context.Context, rawURL, userID string) (string, error) {
	url, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	exists, err := o.store.PageExists(ctx, url)
	if err != nil {
		return "", err
	}
	if exists {
		return url, fmt.Errorf("%s: %w", url, util.ErrDuplicate)
	}
	known, err := o.store.UserExists(ctx, userID)
	if err != nil {
		return "", err
	}
	if !known {
		if err := o.store.InsertSuggestion(ctx, url); err != nil {
			return "", err
		}
		return url, fmt.Errorf("user %q: %w", userID, util.ErrUnauthorized)
	}
	if err := o.store.Enqueue(ctx, url, userID); err != nil {
		return "", err
	}
	return url, nil
}

// Process runs fetch through persistence for an admitted URL. On failure the
// queue entry stays in place.
func (o *Orchestrator) Process(ctx context.Context, url, userID string) (models.IngestResult, error) {
	return o.process(ctx, url, userID, nil)
}

// Ingest admits and processes url in the caller's goroutine.
func (o *Orchestrator) Ingest(ctx context.Context, rawURL, userID string) (models.IngestResult, error) {
	url, err := o.Admit(ctx, rawURL, userID)
	if err != nil {
		return Result(url, err), err
	}
	return o.Process(ctx, url, userID)
}

func (o *Orchestrator) process(ctx context.Context, url, userID string, report func(Step)) (models.IngestResult, error) {
	if report == nil {
		report = func(Step) {}
	}
	report(StepFetch)
	page, err := o.FetchPage(ctx, url)
	if err != nil {
		return Result(url, err), err
	}
	report(StepSummarize)
	sum, err := o.SummarizePage(ctx, page)
	if err != nil {
		return Result(url, err), err
	}
	report(StepEmbedStore)
	return o.EmbedAndStore(ctx, StoreInput{URL: url, UserID: userID, Body: page.Body, Summary: sum})
}

func (o *Orchestrator) FetchPage(ctx context.Context, url string) (fetch.Page, error) {
	page, err := o.fetcher.Fetch(ctx, url)
	if err != nil {
		return fetch.Page{}, fmt.Errorf("fetch %s: %w", url, err)
	}
	return page, nil
}

func (o *Orchestrator) SummarizePage(ctx context.Context, page fetch.Page) (summarize.Summary, error) {
	sum, err := o.summarizer.Summarize(ctx, page.Headings, page.Body)
	if err != nil {
		return summarize.Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return sum, nil
}

type StoreInput struct {
	URL     string
	UserID  string
	Body    string
	Summary summarize.Summary
}

// EmbedAndStore chunks and embeds the body, uploads every window under its
// content key and then writes the page, chunk rows and queue removal together.
func (o *Orchestrator) EmbedAndStore(ctx context.Context, in StoreInput) (models.IngestResult, error) {
	windows, err := o.chunker.Chunk(ctx, in.Body, o.opts.WindowTokens, o.opts.Overlap, o.opts.ChunkDim)
	if err != nil {
		return Result(in.URL, err), fmt.Errorf("chunk body: %w", err)
	}
	docText := chunker.Truncate(o.tokenizer, in.Body, o.opts.DocumentTokens)
	docVec, err := o.embedder.Embed(ctx, docText, o.opts.DocumentDim)
	if err != nil {
		return Result(in.URL, err), fmt.Errorf("embed document: %w", err)
	}

	page := models.Page{
		ID:                o.newID(),
		URL:               in.URL,
		Title:             in.Summary.Title,
		Description:       in.Summary.Description,
		DocumentEmbedding: docVec,
		AddedBy:           in.UserID,
	}
	chunks := make([]models.Chunk, 0, len(windows))
	for _, w := range windows {
		key := ContentKey(w.Text, o.now(), in.URL)
		if err := o.blobs.Put(ctx, key, []byte(w.Text)); err != nil {
			return Result(in.URL, err), fmt.Errorf("upload chunk: %w", err)
		}
		chunks = append(chunks, models.Chunk{PageID: page.ID, ContentID: key, Embedding: w.Embedding})
	}
	if err := o.store.SaveIngested(ctx, page, chunks); err != nil {
		return Result(in.URL, err), err
	}
	o.log.Info("page ingested", "url", in.URL, "user_id", in.UserID, "page_id", page.ID, "chunks", len(chunks))
	res := Result(in.URL, nil)
	res.PageID = page.ID
	res.Chunks = len(chunks)
	return res, nil
}

// ContentKey is the blob key and row key of one chunk:
// md5(text + "-" + unix seconds with fraction + "-" + url) in hex.
func ContentKey(text string, at time.Time, url string) string {
	ts := strconv.FormatFloat(float64(at.UnixMicro())/1e6, 'f', -1, 64)
	return util.MD5Hex([]byte(text + "-" + ts + "-" + url))
}

// Result builds the per-URL outcome for err.
func Result(url string, err error) models.IngestResult {
	status := util.StatusOf(err)
	msg := "Successfully Embedded"
	switch status {
	case util.StatusDuplicate:
		msg = "This URL already exists in the DB"
	case util.StatusUnauthorized:
		msg = "User is unauthorized"
	case util.StatusBadRequest:
		msg = err.Error()
	case util.StatusInternal:
		msg = "Internal server error"
	}
	return models.IngestResult{URL: url, Status: status, Message: msg}
}
