package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"websift/internal/blob"
	"websift/internal/chunker"
	"websift/internal/fetch"
	"websift/internal/logging"
	"websift/internal/util"

	"github.com/stretchr/testify/require"
)

type harness struct {
	store *memStore
	blobs *blob.Memory
	emb   *stubEmbedder
	fetch *stubFetcher
	o     *Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store: newMemStore("alice"),
		blobs: blob.NewMemory(),
		emb:   &stubEmbedder{},
		fetch: &stubFetcher{pages: map[string]fetch.Page{
			"http://x.com": {Headings: []string{"X Home"}, Body: strings.TrimSpace(strings.Repeat("word ", 2000))},
		}},
	}
	n := 0
	h.o = New(Deps{
		Store:      h.store,
		Blobs:      h.blobs,
		Fetcher:    h.fetch,
		Summarizer: stubSummarizer{},
		Chunker:    chunker.New(wordTokenizer{}, h.emb),
		Embedder:   h.emb,
		Logger:     logging.Discard(),
		Now:        fixedClock(),
		NewID: func() string {
			n++
			return "page-" + string(rune('0'+n))
		},
	}, Options{WindowTokens: 800, Overlap: 0.5, ChunkDim: 768, DocumentDim: 1024})
	return h
}

func TestIngestEndToEnd(t *testing.T) {
	h := newHarness(t)
	res, err := h.o.Ingest(context.Background(), "  http://x.com/ ", "alice")
	require.NoError(t, err)
	require.Equal(t, util.StatusOK, res.Status)
	require.Equal(t, 4, res.Chunks)

	require.Len(t, h.store.pages, 1)
	page := h.store.pages["http://x.com"]
	require.Equal(t, "X Home", page.Title)
	require.Len(t, page.DocumentEmbedding, 1024)
	require.Equal(t, "alice", page.AddedBy)

	require.Len(t, h.store.chunks, 4)
	seen := map[string]bool{}
	for _, c := range h.store.chunks {
		require.Equal(t, page.ID, c.PageID)
		require.Len(t, c.Embedding, 768)
		require.Len(t, c.ContentID, 32)
		seen[c.ContentID] = true
	}
	require.Len(t, seen, 4, "content ids are unique")
	require.Equal(t, 4, h.blobs.Len())
	require.Empty(t, h.store.queue, "queue entry removed on success")
	require.Equal(t, []int{768, 768, 768, 768, 1024}, h.emb.dims)
}

func TestIngestDuplicate(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Ingest(context.Background(), "http://x.com", "alice")
	require.NoError(t, err)

	res, err := h.o.Ingest(context.Background(), "http://x.com/", "alice")
	require.ErrorIs(t, err, util.ErrDuplicate)
	require.Equal(t, util.StatusDuplicate, res.Status)
	require.Len(t, h.store.pages, 1)
	require.Empty(t, h.store.queue, "duplicate has no side effects")
}

func TestIngestUnauthorizedRecordsSuggestion(t *testing.T) {
	h := newHarness(t)
	res, err := h.o.Ingest(context.Background(), "http://x.com/", "mallory")
	require.ErrorIs(t, err, util.ErrUnauthorized)
	require.Equal(t, util.StatusUnauthorized, res.Status)
	require.Equal(t, []string{"http://x.com"}, h.store.suggestions)
	require.Empty(t, h.store.queue)
	require.Empty(t, h.store.pages)
}

func TestIngestInvalidURL(t *testing.T) {
	h := newHarness(t)
	for _, raw := range []string{"", "   ", "ftp://x.com", "not a url"} {
		res, err := h.o.Ingest(context.Background(), raw, "alice")
		require.ErrorIs(t, err, util.ErrValidation, raw)
		require.Equal(t, util.StatusBadRequest, res.Status)
	}
}

func TestIngestFailureLeavesQueueEntry(t *testing.T) {
	h := newHarness(t)
	h.emb.failDim = 1024
	res, err := h.o.Ingest(context.Background(), "http://x.com", "alice")
	require.ErrorIs(t, err, util.ErrEmbeddingUnavailable)
	require.Equal(t, util.StatusInternal, res.Status)
	require.Equal(t, "alice", h.store.queue["http://x.com"])
	require.Empty(t, h.store.pages)
	require.Zero(t, h.blobs.Len(), "no blobs before embeddings succeed")
}

func TestIngestFetchFailure(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Ingest(context.Background(), "http://unknown.example", "alice")
	require.ErrorIs(t, err, util.ErrFetchFailed)
	require.Contains(t, h.store.queue, "http://unknown.example")
}

func TestIngestBlobFailureWritesNoRows(t *testing.T) {
	h := newHarness(t)
	h.o.blobs = failingBlobs{}
	_, err := h.o.Ingest(context.Background(), "http://x.com", "alice")
	require.ErrorIs(t, err, util.ErrStorage)
	require.Empty(t, h.store.pages)
	require.Empty(t, h.store.chunks)
}

func TestIngestLosesDuplicateRaceAtInsert(t *testing.T) {
	h := newHarness(t)
	url, err := h.o.Admit(context.Background(), "http://x.com", "alice")
	require.NoError(t, err)
	h.store.saveErr = util.ErrDuplicate

	res, err := h.o.Process(context.Background(), url, "alice")
	require.ErrorIs(t, err, util.ErrDuplicate)
	require.Equal(t, util.StatusDuplicate, res.Status)
}

func TestContentKey(t *testing.T) {
	at := time.Unix(1700000000, 250000000)
	k := ContentKey("hello", at, "http://x.com")
	require.Equal(t, util.MD5Hex([]byte("hello-1700000000.25-http://x.com")), k)
	require.NotEqual(t, k, ContentKey("hello", at.Add(time.Microsecond), "http://x.com"))
}

func TestNormalizeURL(t *testing.T) {
	a, err := NormalizeURL("http://x.com/")
	require.NoError(t, err)
	b, err := NormalizeURL("http://x.com")
	require.NoError(t, err)
	require.Equal(t, a, b)

	c, err := NormalizeURL(" https://x.com/docs// ")
	require.NoError(t, err)
	require.Equal(t, "https://x.com/docs/", c, "only one trailing slash is stripped")
}

func TestDocumentEmbeddingInputIsTokenBounded(t *testing.T) {
	h := newHarness(t)
	h.o.tokenizer = wordTokenizer{}
	h.o.opts.DocumentTokens = 100

	_, err := h.o.Ingest(context.Background(), "http://x.com", "alice")
	require.NoError(t, err)

	last := len(h.emb.dims) - 1
	require.Equal(t, 1024, h.emb.dims[last])
	require.Len(t, strings.Fields(h.emb.texts[last]), 100)
}

func TestDocumentEmbeddingUnboundedByDefault(t *testing.T) {
	h := newHarness(t)
	_, err := h.o.Ingest(context.Background(), "http://x.com", "alice")
	require.NoError(t, err)

	last := len(h.emb.texts) - 1
	require.Len(t, strings.Fields(h.emb.texts[last]), 2000)
}
