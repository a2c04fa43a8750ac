package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"websift/internal/util"
)

// Step names a stage of background ingestion.
type Step string

const (
	StepQueued     Step = "queued"
	StepFetch      Step = "fetch"
	StepSummarize  Step = "summarize"
	StepEmbedStore Step = "embed_store"
	StepCompleted  Step = "completed"
	StepFailed     Step = "failed"
)

type Progress struct {
	URL       string    `json:"url"`
	Step      Step      `json:"step"`
	Error     string    `json:"error,omitempty"`
	PageID    string    `json:"page_id,omitempty"`
	Chunks    int       `json:"chunks,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

var ErrUnknownIngestion = fmt.Errorf("%w: no ingestion found for url", util.ErrValidation)

// Dispatcher runs admitted URLs in the background. Dispatch returns as soon
// as the work is handed off; util.ErrDuplicate means the URL is already in
// flight.
type Dispatcher interface {
	Dispatch(ctx context.Context, url, userID string) error
	Progress(ctx context.Context, url string) (Progress, error)
}

// DefaultProgressTTL is how long a finished ingestion stays queryable.
const DefaultProgressTTL = time.Hour

// LocalDispatcher runs each ingestion in its own goroutine and keeps the last
// known progress per URL in memory. Completed and failed entries are evicted
// once they are older than the retention window.
type LocalDispatcher struct {
	o   *Orchestrator
	log *slog.Logger
	// base detaches background work from the request context.
	base context.Context
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	progress map[string]Progress
	wg       sync.WaitGroup
}

func NewLocalDispatcher(base context.Context, o *Orchestrator, log *slog.Logger) *LocalDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &LocalDispatcher{
		o:        o,
		log:      log,
		base:     base,
		ttl:      DefaultProgressTTL,
		now:      time.Now,
		progress: map[string]Progress{},
	}
}

// SetRetention changes how long finished entries are kept. A non-positive
// ttl keeps the default.
func (d *LocalDispatcher) SetRetention(ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	d.mu.Lock()
	d.ttl = ttl
	d.mu.Unlock()
}

func finished(s Step) bool { return s == StepCompleted || s == StepFailed }

// evictLocked drops finished entries older than the retention window.
// d.mu must be held.
func (d *LocalDispatcher) evictLocked() {
	cutoff := d.now().Add(-d.ttl)
	for url, p := range d.progress {
		if finished(p.Step) && p.UpdatedAt.Before(cutoff) {
			delete(d.progress, url)
		}
	}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, url, userID string) error {
	_ = ctx
	d.mu.Lock()
	d.evictLocked()
	if p, ok := d.progress[url]; ok && !finished(p.Step) {
		d.mu.Unlock()
		return fmt.Errorf("%s already in flight: %w", url, util.ErrDuplicate)
	}
	d.progress[url] = Progress{URL: url, Step: StepQueued, UpdatedAt: d.now()}
	d.mu.Unlock()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.run(url, userID)
	}()
	d.log.Info("ingestion dispatched", "url", url, "user_id", userID, "dispatcher", "local")
	return nil
}

func (d *LocalDispatcher) run(url, userID string) {
	res, err := d.o.process(d.base, url, userID, func(s Step) { d.set(url, Progress{Step: s}) })
	if err != nil {
		d.set(url, Progress{Step: StepFailed, Error: err.Error()})
		d.log.Error("ingestion failed", "url", url, "user_id", userID,
			"status", util.StatusOf(err), "kind", util.Kind(err), "err", err)
		return
	}
	d.set(url, Progress{Step: StepCompleted, PageID: res.PageID, Chunks: res.Chunks})
	d.log.Info("ingestion completed", "url", url, "user_id", userID, "status", res.Status, "chunks", res.Chunks)
}

func (d *LocalDispatcher) set(url string, p Progress) {
	p.URL = url
	d.mu.Lock()
	p.UpdatedAt = d.now()
	d.progress[url] = p
	d.evictLocked()
	d.mu.Unlock()
}

func (d *LocalDispatcher) Progress(ctx context.Context, url string) (Progress, error) {
	_ = ctx
	d.mu.Lock()
	defer d.mu.Unlock()
	d.evictLocked()
	p, ok := d.progress[url]
	if !ok {
		return Progress{}, ErrUnknownIngestion
	}
	return p, nil
}

// Wait blocks until every dispatched ingestion has finished.
func (d *LocalDispatcher) Wait() {
	d.wg.Wait()
}
