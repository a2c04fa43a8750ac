// Package retrieval answers the five query modes with a ranked list of source
// URLs. Every mode is a plan executed by the same runner.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"websift/internal/chunker"
	"websift/internal/fetch"
	"websift/internal/ingest"
	"websift/internal/models"
	"websift/internal/summarize"
	"websift/internal/util"
	"websift/internal/vector"
)

type Searcher interface {
	Chunks(ctx context.Context, vec []float32, k int, dir vector.Direction) ([]models.PageRef, error)
	Pages(ctx context.Context, vec []float32, k int) ([]models.PageRef, error)
}

type Store interface {
	PageExists(ctx context.Context, url string) (bool, error)
	LogRequest(ctx context.Context, content string, typ models.QueryType, userID string) error
}

type Embedder interface {
	Embed(ctx context.Context, text string, dim int) ([]float32, error)
}

type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetch.Page, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, headings []string, body string) (summarize.Summary, error)
}

type Options struct {
	TopK        int
	ChunkDim    int
	DocumentDim int

	// DocumentTokens bounds the query document sent for embedding. Zero
	// sends it whole.
	DocumentTokens int
}

type Deps struct {
	Searcher   Searcher
	Store      Store
	Embedder   Embedder
	Fetcher    Fetcher
	Summarizer Summarizer
	Tokenizer  chunker.Tokenizer
	Logger     *slog.Logger
}

type Service struct {
	searcher   Searcher
	store      Store
	embedder   Embedder
	fetcher    Fetcher
	summarizer Summarizer
	tokenizer  chunker.Tokenizer
	opts       Options
	log        *slog.Logger
}

func New(d Deps, opts Options) *Service {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if opts.TopK <= 0 {
		opts.TopK = 10
	}
	return &Service{
		searcher:   d.Searcher,
		store:      d.Store,
		embedder:   d.Embedder,
		fetcher:    d.Fetcher,
		summarizer: d.Summarizer,
		tokenizer:  d.Tokenizer,
		opts:       opts,
		log:        d.Logger,
	}
}

type index int

const (
	chunkIndex index = iota
	pageIndex
)

type combine int

const (
	concat combine = iota
	intersect
)

// plan describes one query mode. embed yields the query vectors; each vector
// is looked up separately and the candidate lists are combined.
type plan struct {
	mode      string
	embed     func(ctx context.Context) ([][]float32, error)
	index     index
	direction vector.Direction
	combine   combine
	// logRequest writes the request log entry after a successful lookup.
	logRequest func(ctx context.Context) error
}

func (s *Service) run(ctx context.Context, p plan) ([]models.RankedURL, error) {
	vecs, err := p.embed(ctx)
	if err != nil {
		return nil, err
	}
	lists := make([][]models.PageRef, 0, len(vecs))
	for _, v := range vecs {
		var refs []models.PageRef
		if p.index == pageIndex {
			refs, err = s.searcher.Pages(ctx, v, s.opts.TopK)
		} else {
			refs, err = s.searcher.Chunks(ctx, v, s.opts.TopK, p.direction)
		}
		if err != nil {
			return nil, err
		}
		lists = append(lists, refs)
	}

	var candidates []models.PageRef
	if p.combine == intersect {
		candidates = Intersect(lists)
	} else {
		for _, l := range lists {
			candidates = append(candidates, l...)
		}
	}
	ranked := Rank(candidates)
	if p.logRequest != nil {
		if err := p.logRequest(ctx); err != nil {
			return nil, err
		}
	}
	return ranked, nil
}

// exec runs p and hides failure detail from the caller.
func (s *Service) exec(ctx context.Context, p plan, userID string) ([]models.RankedURL, error) {
	ranked, err := s.run(ctx, p)
	if err != nil {
		s.log.Error("retrieval failed", "mode", p.mode, "user_id", userID, "kind", util.Kind(err), "err", err)
		return nil, util.ErrInternal
	}
	s.log.Info("retrieval served", "mode", p.mode, "user_id", userID, "results", len(ranked))
	return ranked, nil
}

func (s *Service) embedAll(texts []string, dim int) func(ctx context.Context) ([][]float32, error) {
	return func(ctx context.Context) ([][]float32, error) {
		out := make([][]float32, 0, len(texts))
		for _, t := range texts {
			v, err := s.embedder.Embed(ctx, t, dim)
			if err != nil {
				return nil, fmt.Errorf("embed query: %w", err)
			}
			out = append(out, v)
		}
		return out, nil
	}
}

func (s *Service) logAs(content string, typ models.QueryType, userID string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return s.store.LogRequest(ctx, content, typ, userID)
	}
}

// Phrase ranks pages whose chunks are nearest to the phrase.
func (s *Service) Phrase(ctx context.Context, phrase, userID string) ([]models.RankedURL, error) {
	if strings.TrimSpace(phrase) == "" {
		return nil, fmt.Errorf("%w: phrase is required", util.ErrValidation)
	}
	return s.exec(ctx, plan{
		mode:       "phrase",
		embed:      s.embedAll([]string{phrase}, s.opts.ChunkDim),
		index:      chunkIndex,
		direction:  vector.Nearest,
		combine:    concat,
		logRequest: s.logAs(phrase, models.QueryPhrase, userID),
	}, userID)
}

// Opposite ranks pages whose chunks are least similar to the phrase. The
// request is logged as a phrase query.
func (s *Service) Opposite(ctx context.Context, phrase, userID string) ([]models.RankedURL, error) {
	if strings.TrimSpace(phrase) == "" {
		return nil, fmt.Errorf("%w: phrase is required", util.ErrValidation)
	}
	return s.exec(ctx, plan{
		mode:       "opposite",
		embed:      s.embedAll([]string{phrase}, s.opts.ChunkDim),
		index:      chunkIndex,
		direction:  vector.Farthest,
		combine:    concat,
		logRequest: s.logAs(phrase, models.QueryPhrase, userID),
	}, userID)
}

// Words ranks the pages that are near every word.
func (s *Service) Words(ctx context.Context, words []string, userID string) ([]models.RankedURL, error) {
	clean := make([]string, 0, len(words))
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			clean = append(clean, w)
		}
	}
	if len(clean) == 0 {
		return nil, fmt.Errorf("%w: at least one word is required", util.ErrValidation)
	}
	return s.exec(ctx, plan{
		mode:       "words",
		embed:      s.embedAll(clean, s.opts.ChunkDim),
		index:      chunkIndex,
		direction:  vector.Nearest,
		combine:    intersect,
		logRequest: s.logAs(strings.Join(clean, ", "), models.QueryWords, userID),
	}, userID)
}

// Document ranks pages by whole-document embedding similarity.
func (s *Service) Document(ctx context.Context, doc, userID string) ([]models.RankedURL, error) {
	if strings.TrimSpace(doc) == "" {
		return nil, fmt.Errorf("%w: document is required", util.ErrValidation)
	}
	return s.exec(ctx, plan{
		mode:       "document",
		embed:      s.embedAll([]string{chunker.Truncate(s.tokenizer, doc, s.opts.DocumentTokens)}, s.opts.DocumentDim),
		index:      pageIndex,
		direction:  vector.Nearest,
		combine:    concat,
		logRequest: s.logAs(doc, models.QueryDocument, userID),
	}, userID)
}

// URL fetches and summarizes a page, then ranks pages near both its title and
// its description. The request is logged only for URLs not already ingested.
func (s *Service) URL(ctx context.Context, rawURL, userID string) ([]models.RankedURL, error) {
	url, err := ingest.NormalizeURL(rawURL)
	if err != nil {
		return nil, err
	}
	embed := func(ctx context.Context) ([][]float32, error) {
		page, err := s.fetcher.Fetch(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", url, err)
		}
		sum, err := s.summarizer.Summarize(ctx, page.Headings, page.Body)
		if err != nil {
			return nil, fmt.Errorf("summarize %s: %w", url, err)
		}
		return s.embedAll([]string{sum.Title, sum.Description}, s.opts.ChunkDim)(ctx)
	}
	logRequest := func(ctx context.Context) error {
		exists, err := s.store.PageExists(ctx, url)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		return s.store.LogRequest(ctx, url, models.QueryURL, userID)
	}
	return s.exec(ctx, plan{
		mode:       "url",
		embed:      embed,
		index:      chunkIndex,
		direction:  vector.Nearest,
		combine:    intersect,
		logRequest: logRequest,
	}, userID)
}
