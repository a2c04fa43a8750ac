package ingest

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"websift/internal/fetch"
	"websift/internal/models"
	"websift/internal/summarize"
	"websift/internal/util"
)

type memStore struct {
	mu          sync.Mutex
	users       map[string]bool
	pages       map[string]models.Page
	chunks      []models.Chunk
	queue       map[string]string
	suggestions []string
	saveErr     error
}

func newMemStore(users ...string) *memStore {
	s := &memStore{users: map[string]bool{}, pages: map[string]models.Page{}, queue: map[string]string{}}
	for _, u := range users {
		s.users[u] = true
	}
	return s
}

func (s *memStore) PageExists(_ context.Context, url string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pages[url]
	return ok, nil
}

func (s *memStore) UserExists(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[userID], nil
}

func (s *memStore) InsertSuggestion(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suggestions = append(s.suggestions, url)
	return nil
}

func (s *memStore) Enqueue(_ context.Context, url, addedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue[url] = addedBy
	return nil
}

func (s *memStore) SaveIngested(_ context.Context, p models.Page, chunks []models.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	if _, ok := s.pages[p.URL]; ok {
		return util.ErrDuplicate
	}
	s.pages[p.URL] = p
	s.chunks = append(s.chunks, chunks...)
	delete(s.queue, p.URL)
	return nil
}

type stubFetcher struct {
	pages map[string]fetch.Page
	err   error
}

func (f *stubFetcher) Fetch(_ context.Context, url string) (fetch.Page, error) {
	if f.err != nil {
		return fetch.Page{}, f.err
	}
	p, ok := f.pages[url]
	if !ok {
		return fetch.Page{}, util.ErrFetchFailed
	}
	return p, nil
}

type stubSummarizer struct{}

func (stubSummarizer) Summarize(_ context.Context, headings []string, body string) (summarize.Summary, error) {
	title := "untitled"
	if len(headings) > 0 {
		title = headings[0]
	}
	return summarize.Summary{Title: title, Description: "about " + title}, nil
}

// wordTokenizer treats every whitespace-separated word as one token.
type wordTokenizer struct{}

func (wordTokenizer) Encode(text string) []int {
	out := make([]int, len(strings.Fields(text)))
	for i := range out {
		out[i] = i
	}
	return out
}

func (wordTokenizer) Decode(tokens []int) string {
	return strings.TrimSpace(strings.Repeat("tok ", len(tokens)))
}

type stubEmbedder struct {
	mu      sync.Mutex
	dims    []int
	texts   []string
	failDim int
}

func (e *stubEmbedder) Embed(_ context.Context, text string, dim int) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dims = append(e.dims, dim)
	e.texts = append(e.texts, text)
	if dim == e.failDim {
		return nil, util.ErrEmbeddingUnavailable
	}
	return make([]float32, dim), nil
}

type failingBlobs struct{}

func (failingBlobs) Put(context.Context, string, []byte) error {
	return util.StorageError("put", errors.New("bucket offline"))
}
func (failingBlobs) Get(context.Context, string) ([]byte, error) { return nil, errors.New("unused") }

func fixedClock() func() time.Time {
	t := time.Unix(1700000000, 0)
	return func() time.Time {
		t = t.Add(time.Millisecond)
		return t
	}
}
