package models

import "time"

// Page is one ingested source document. Immutable once stored.
type Page struct {
	ID                string    `json:"id"`
	URL               string    `json:"url"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	DocumentEmbedding []float32 `json:"-"`
	AddedBy           string    `json:"added_by"`
	CreatedAt         time.Time `json:"created_at"`
	Date              string    `json:"date"`
}

// Chunk links one stored window of text to its page. The text itself lives in
// the blob store under ContentID.
type Chunk struct {
	PageID    string    `json:"page_id"`
	ContentID string    `json:"content_id"`
	Embedding []float32 `json:"-"`
}

type QueueEntry struct {
	URL       string    `json:"url"`
	AddedBy   string    `json:"added_by"`
	CreatedAt time.Time `json:"created_at"`
}

type Suggestion struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

type QueryType string

const (
	QueryPhrase   QueryType = "phrase"
	QueryWords    QueryType = "words"
	QueryDocument QueryType = "document"
	QueryURL      QueryType = "url"
)

type RequestLog struct {
	Content   string    `json:"content"`
	Type      QueryType `json:"type"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// PageRef is a retrieval candidate. Ranking groups on (URL, Title).
type PageRef struct {
	ID    string `json:"-"`
	URL   string `json:"url"`
	Title string `json:"title"`
}

type RankedURL struct {
	URL   string `json:"url"`
	Title string `json:"title"`
	Count int    `json:"count"`
}

type Stats struct {
	Pages    int64 `json:"pages"`
	Chunks   int64 `json:"chunks"`
	Requests int64 `json:"requests"`
	Queued   int64 `json:"queued"`
}

// IngestResult reports the outcome of a single URL submission.
type IngestResult struct {
	URL     string `json:"url"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	PageID  string `json:"page_id,omitempty"`
	Chunks  int    `json:"chunks,omitempty"`
}
