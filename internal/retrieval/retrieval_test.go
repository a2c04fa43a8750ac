package retrieval

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"websift/internal/fetch"
	"websift/internal/logging"
	"websift/internal/models"
	"websift/internal/summarize"
	"websift/internal/util"
	"websift/internal/vector"

	"github.com/stretchr/testify/require"
)

type chunkRow struct {
	page models.PageRef
	vec  []float32
}

// memSearcher ranks rows by cosine distance like the pgvector <=> operator.
type memSearcher struct {
	chunks []chunkRow
	pages  []chunkRow
	err    error
	dirs   []vector.Direction
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}

func nearest(rows []chunkRow, vec []float32, k int, dir vector.Direction) []models.PageRef {
	sorted := append([]chunkRow(nil), rows...)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, dj := cosineDistance(sorted[i].vec, vec), cosineDistance(sorted[j].vec, vec)
		if dir == vector.Farthest {
			return di > dj
		}
		return di < dj
	})
	out := make([]models.PageRef, 0, k)
	for i := 0; i < len(sorted) && i < k; i++ {
		out = append(out, sorted[i].page)
	}
	return out
}

func (m *memSearcher) Chunks(_ context.Context, vec []float32, k int, dir vector.Direction) ([]models.PageRef, error) {
	m.dirs = append(m.dirs, dir)
	if m.err != nil {
		return nil, m.err
	}
	return nearest(m.chunks, vec, k, dir), nil
}

func (m *memSearcher) Pages(_ context.Context, vec []float32, k int) ([]models.PageRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	return nearest(m.pages, vec, k, vector.Nearest), nil
}

type logEntry struct {
	content string
	typ     models.QueryType
	userID  string
}

type memStore struct {
	pages map[string]bool
	logs  []logEntry
}

func (s *memStore) PageExists(_ context.Context, url string) (bool, error) {
	return s.pages[url], nil
}

func (s *memStore) LogRequest(_ context.Context, content string, typ models.QueryType, userID string) error {
	s.logs = append(s.logs, logEntry{content, typ, userID})
	return nil
}

type mapEmbedder struct {
	vecs map[string][]float32
	dims []int
}

func (e *mapEmbedder) Embed(_ context.Context, text string, dim int) ([]float32, error) {
	e.dims = append(e.dims, dim)
	v, ok := e.vecs[text]
	if !ok {
		return nil, util.ErrEmbeddingUnavailable
	}
	return v, nil
}

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	return fetch.Page{Headings: []string{"Heading"}, Body: "body of " + url}, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(context.Context, []string, string) (summarize.Summary, error) {
	return summarize.Summary{Title: "title", Description: "description"}, nil
}

var (
	pageA = models.PageRef{ID: "a", URL: "http://a.com", Title: "A"}
	pageB = models.PageRef{ID: "b", URL: "http://b.com", Title: "B"}
	pageC = models.PageRef{ID: "c", URL: "http://c.com", Title: "C"}
)

type fixture struct {
	searcher *memSearcher
	store    *memStore
	emb      *mapEmbedder
	svc      *Service
}

func newFixture(topK int) *fixture {
	f := &fixture{
		searcher: &memSearcher{
			chunks: []chunkRow{
				{pageA, []float32{1, 0, 0}},
				{pageA, []float32{0.9, 0.1, 0}},
				{pageB, []float32{0.5, 0.5, 0}},
				{pageC, []float32{0, 0, 1}},
			},
			pages: []chunkRow{
				{pageA, []float32{1, 0, 0}},
				{pageB, []float32{0, 1, 0}},
				{pageC, []float32{0, 0, 1}},
			},
		},
		store: &memStore{pages: map[string]bool{"http://a.com": true}},
		emb: &mapEmbedder{vecs: map[string][]float32{
			"goroutines":  {1, 0, 0},
			"channels":    {0.6, 0.4, 0},
			"select":      {0, 0.2, 1},
			"title":       {1, 0, 0},
			"description": {0.7, 0.3, 0},
			"whole doc":   {0, 1, 0.1},
		}},
	}
	f.svc = New(Deps{
		Searcher:   f.searcher,
		Store:      f.store,
		Embedder:   f.emb,
		Fetcher:    stubFetcher{},
		Summarizer: stubSummarizer{},
		Logger:     logging.Discard(),
	}, Options{TopK: topK, ChunkDim: 3, DocumentDim: 5})
	return f
}

func TestPhraseRanksByChunkCount(t *testing.T) {
	f := newFixture(3)
	got, err := f.svc.Phrase(context.Background(), "goroutines", "u1")
	require.NoError(t, err)
	require.Equal(t, []models.RankedURL{
		{URL: "http://a.com", Title: "A", Count: 2},
		{URL: "http://b.com", Title: "B", Count: 1},
	}, got)
	require.Equal(t, []logEntry{{"goroutines", models.QueryPhrase, "u1"}}, f.store.logs)
	require.Equal(t, []vector.Direction{vector.Nearest}, f.searcher.dirs)
}

func TestOppositeIsReverseOfPhrase(t *testing.T) {
	f := newFixture(10)
	f.searcher.chunks = []chunkRow{
		{pageA, []float32{1, 0, 0}},
		{pageB, []float32{0.5, 0.5, 0}},
		{pageC, []float32{0, 0, 1}},
	}
	phrase, err := f.svc.Phrase(context.Background(), "goroutines", "u1")
	require.NoError(t, err)
	opposite, err := f.svc.Opposite(context.Background(), "goroutines", "u1")
	require.NoError(t, err)

	require.Equal(t, []string{"http://a.com", "http://b.com", "http://c.com"}, urls(phrase))
	require.Equal(t, []string{"http://c.com", "http://b.com", "http://a.com"}, urls(opposite))
	require.Equal(t, models.QueryPhrase, f.store.logs[1].typ, "opposite is logged as a phrase query")
	require.Equal(t, vector.Farthest, f.searcher.dirs[1])
}

func TestWordsIntersects(t *testing.T) {
	f := newFixture(3)
	// goroutines -> a, a, b ; channels -> b, a, a
	got, err := f.svc.Words(context.Background(), []string{"goroutines", " ", "channels"}, "u1")
	require.NoError(t, err)
	require.Equal(t, []models.RankedURL{
		{URL: "http://a.com", Title: "A", Count: 1},
		{URL: "http://b.com", Title: "B", Count: 1},
	}, got)
	require.Equal(t, "goroutines, channels", f.store.logs[0].content)
	require.Equal(t, models.QueryWords, f.store.logs[0].typ)
}

func TestWordsDisjointYieldsNothing(t *testing.T) {
	f := newFixture(1)
	got, err := f.svc.Words(context.Background(), []string{"goroutines", "select"}, "u1")
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestDocumentUsesDocumentDimension(t *testing.T) {
	f := newFixture(2)
	got, err := f.svc.Document(context.Background(), "whole doc", "u1")
	require.NoError(t, err)
	require.Equal(t, []string{"http://b.com", "http://c.com"}, urls(got))
	require.Equal(t, []int{5}, f.emb.dims)
	require.Equal(t, models.QueryDocument, f.store.logs[0].typ)
}

func TestURLLogsOnlyNewPages(t *testing.T) {
	f := newFixture(3)
	got, err := f.svc.URL(context.Background(), "http://a.com/", "u1")
	require.NoError(t, err)
	require.Equal(t, "http://a.com", got[0].URL)
	require.Empty(t, f.store.logs, "already ingested url is not logged")
	require.Equal(t, []int{3, 3}, f.emb.dims, "title and description embedded separately")

	_, err = f.svc.URL(context.Background(), "http://new.com/", "u2")
	require.NoError(t, err)
	require.Equal(t, []logEntry{{"http://new.com", models.QueryURL, "u2"}}, f.store.logs)
}

func TestFailuresAreGeneric(t *testing.T) {
	f := newFixture(3)
	f.searcher.err = errors.New("pool exhausted")
	_, err := f.svc.Phrase(context.Background(), "goroutines", "u1")
	require.Equal(t, util.ErrInternal, err)
	require.Equal(t, util.StatusInternal, util.StatusOf(err))
	require.Empty(t, f.store.logs)

	_, err = f.svc.Phrase(context.Background(), "unknown phrase", "u1")
	require.Equal(t, util.ErrInternal, err)
}

func TestValidation(t *testing.T) {
	f := newFixture(3)
	_, err := f.svc.Phrase(context.Background(), " ", "u1")
	require.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.Words(context.Background(), nil, "u1")
	require.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.Document(context.Background(), "", "u1")
	require.ErrorIs(t, err, util.ErrValidation)
	_, err = f.svc.URL(context.Background(), "ftp://x", "u1")
	require.ErrorIs(t, err, util.ErrValidation)
}
