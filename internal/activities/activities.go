package activities

import (
	"context"
	"errors"
	"log/slog"

	"websift/internal/fetch"
	"websift/internal/ingest"
	"websift/internal/summarize"
	"websift/internal/util"

	"go.temporal.io/sdk/temporal"
)

// ErrTypeDuplicate is the application error type reported when the page was
// stored by a concurrent ingestion.
const ErrTypeDuplicate = "Duplicate"

type Activities struct {
	o   *ingest.Orchestrator
	log *slog.Logger
}

func New(o *ingest.Orchestrator, log *slog.Logger) *Activities {
	if log == nil {
		log = slog.Default()
	}
	return &Activities{o: o, log: log}
}

func (a *Activities) FetchPageActivity(ctx context.Context, in FetchPageInput) (FetchPageOutput, error) {
	page, err := a.o.FetchPage(ctx, in.URL)
	if err != nil {
		return FetchPageOutput{}, a.fail("fetch", in.URL, err)
	}
	key, err := a.o.StageBody(ctx, in.URL, page.Body)
	if err != nil {
		return FetchPageOutput{}, a.fail("fetch", in.URL, err)
	}
	return FetchPageOutput{Headings: page.Headings, BodyKey: key}, nil
}

func (a *Activities) SummarizePageActivity(ctx context.Context, in SummarizePageInput) (SummarizePageOutput, error) {
	body, err := a.o.LoadBody(ctx, in.BodyKey)
	if err != nil {
		return SummarizePageOutput{}, a.fail("summarize", in.URL, err)
	}
	sum, err := a.o.SummarizePage(ctx, fetch.Page{Headings: in.Headings, Body: body})
	if err != nil {
		return SummarizePageOutput{}, a.fail("summarize", in.URL, err)
	}
	return SummarizePageOutput{Title: sum.Title, Description: sum.Description}, nil
}

func (a *Activities) EmbedAndStoreActivity(ctx context.Context, in EmbedAndStoreInput) (EmbedAndStoreOutput, error) {
	body, err := a.o.LoadBody(ctx, in.BodyKey)
	if err != nil {
		return EmbedAndStoreOutput{}, a.fail("embed_store", in.URL, err)
	}
	res, err := a.o.EmbedAndStore(ctx, ingest.StoreInput{
		URL:     in.URL,
		UserID:  in.UserID,
		Body:    body,
		Summary: summarize.Summary{Title: in.Title, Description: in.Description},
	})
	if err != nil {
		return EmbedAndStoreOutput{}, a.fail("embed_store", in.URL, err)
	}
	return EmbedAndStoreOutput{PageID: res.PageID, Chunks: res.Chunks}, nil
}

// fail logs err and converts it into a non-retryable application error whose
// type names its taxonomy bucket.
func (a *Activities) fail(step, url string, err error) error {
	a.log.Error("ingest activity failed", "step", step, "url", url, "kind", util.Kind(err), "err", err)
	typ := util.Kind(err)
	if errors.Is(err, util.ErrDuplicate) {
		typ = ErrTypeDuplicate
	}
	return temporal.NewNonRetryableApplicationError(err.Error(), typ, err)
}
