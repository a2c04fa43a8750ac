package activities

import (
	"context"
	"errors"
	"testing"

	"websift/internal/blob"
	"websift/internal/chunker"
	"websift/internal/fetch"
	"websift/internal/ingest"
	"websift/internal/logging"
	"websift/internal/models"
	"websift/internal/summarize"
	"websift/internal/util"

	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"
)

type stubFetcher struct{ err error }

func (f stubFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	if f.err != nil {
		return fetch.Page{}, f.err
	}
	return fetch.Page{Headings: []string{"H"}, Body: "body of " + url}, nil
}

type stubStore struct{ saveErr error }

func (stubStore) PageExists(context.Context, string) (bool, error)  { return false, nil }
func (stubStore) UserExists(context.Context, string) (bool, error)  { return true, nil }
func (stubStore) InsertSuggestion(context.Context, string) error    { return nil }
func (stubStore) Enqueue(context.Context, string, string) error     { return nil }
func (s stubStore) SaveIngested(context.Context, models.Page, []models.Chunk) error {
	return s.saveErr
}

type stubSummarizer struct{ gotBody string }

func (s *stubSummarizer) Summarize(_ context.Context, _ []string, body string) (summarize.Summary, error) {
	s.gotBody = body
	return summarize.Summary{Title: "T", Description: "D"}, nil
}

type stubChunker struct{}

func (stubChunker) Chunk(_ context.Context, text string, _ int, _ float64, dim int) ([]chunker.Window, error) {
	return []chunker.Window{{Text: text, Start: 0, End: 3, Embedding: make([]float32, dim)}}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, _ string, dim int) ([]float32, error) {
	return make([]float32, dim), nil
}

func newActivities(f stubFetcher, s stubStore, blobs *blob.Memory, sum *stubSummarizer) *Activities {
	o := ingest.New(ingest.Deps{
		Store:      s,
		Blobs:      blobs,
		Fetcher:    f,
		Summarizer: sum,
		Chunker:    stubChunker{},
		Embedder:   stubEmbedder{},
		Logger:     logging.Discard(),
	}, ingest.Options{WindowTokens: 8, Overlap: 0.5, ChunkDim: 4, DocumentDim: 6})
	return New(o, logging.Discard())
}

func TestFetchPageActivity(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	blobs := blob.NewMemory()
	a := newActivities(stubFetcher{}, stubStore{}, blobs, &stubSummarizer{})
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.FetchPageActivity, FetchPageInput{URL: "http://x.com"})
	require.NoError(t, err)
	var out FetchPageOutput
	require.NoError(t, val.Get(&out))
	require.Equal(t, []string{"H"}, out.Headings)
	require.Equal(t, ingest.BodyKey("http://x.com"), out.BodyKey)

	staged, err := blobs.Get(context.Background(), out.BodyKey)
	require.NoError(t, err)
	require.Equal(t, "body of http://x.com", string(staged))
}

func TestSummarizePageActivityReadsStagedBody(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	blobs := blob.NewMemory()
	require.NoError(t, blobs.Put(context.Background(), "body-k", []byte("staged text")))
	sum := &stubSummarizer{}
	a := newActivities(stubFetcher{}, stubStore{}, blobs, sum)
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.SummarizePageActivity, SummarizePageInput{URL: "http://x.com", BodyKey: "body-k"})
	require.NoError(t, err)
	var out SummarizePageOutput
	require.NoError(t, val.Get(&out))
	require.Equal(t, "T", out.Title)
	require.Equal(t, "staged text", sum.gotBody)
}

func TestSummarizePageActivityMissingBody(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newActivities(stubFetcher{}, stubStore{}, blob.NewMemory(), &stubSummarizer{})
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.SummarizePageActivity, SummarizePageInput{URL: "http://x.com", BodyKey: "body-gone"})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, "storage", appErr.Type())
}

func TestFetchPageActivityFailureIsNonRetryable(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	a := newActivities(stubFetcher{err: util.ErrFetchFailed}, stubStore{}, blob.NewMemory(), &stubSummarizer{})
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.FetchPageActivity, FetchPageInput{URL: "http://x.com"})
	require.Error(t, err)
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.True(t, appErr.NonRetryable())
	require.Equal(t, "upstream_unavailable", appErr.Type())
}

func TestEmbedAndStoreActivity(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	blobs := blob.NewMemory()
	require.NoError(t, blobs.Put(context.Background(), "body-k", []byte("abc")))
	a := newActivities(stubFetcher{}, stubStore{}, blobs, &stubSummarizer{})
	env.RegisterActivity(a)

	val, err := env.ExecuteActivity(a.EmbedAndStoreActivity, EmbedAndStoreInput{URL: "http://x.com", UserID: "u", BodyKey: "body-k", Title: "T"})
	require.NoError(t, err)
	var out EmbedAndStoreOutput
	require.NoError(t, val.Get(&out))
	require.Equal(t, 1, out.Chunks)
	require.NotEmpty(t, out.PageID)
}

func TestEmbedAndStoreActivityDuplicate(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	blobs := blob.NewMemory()
	require.NoError(t, blobs.Put(context.Background(), "body-k", []byte("abc")))
	a := newActivities(stubFetcher{}, stubStore{saveErr: util.ErrDuplicate}, blobs, &stubSummarizer{})
	env.RegisterActivity(a)

	_, err := env.ExecuteActivity(a.EmbedAndStoreActivity, EmbedAndStoreInput{URL: "http://x.com", UserID: "u", BodyKey: "body-k", Title: "T"})
	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.Equal(t, ErrTypeDuplicate, appErr.Type())
}
