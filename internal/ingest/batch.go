package ingest

import (
	"context"
	"fmt"
	"strings"

	"websift/internal/models"
	"websift/internal/util"
)

// AdmitBatch authorizes userID once for the whole batch. An unknown user gets
// a suggestion recorded for every URL and util.ErrUnauthorized. Otherwise each
// URL is admitted independently; admitted holds the URLs ready for processing
// and results carries one outcome per input, in order.
func (o *Orchestrator) AdmitBatch(ctx context.Context, rawURLs []string, userID string) (admitted []string, results []models.IngestResult, err error) {
	if len(rawURLs) == 0 {
		return nil, nil, fmt.Errorf("%w: urls must be a non-empty list", util.ErrValidation)
	}
	known, err := o.store.UserExists(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if !known {
		for _, raw := range rawURLs {
			url, nerr := NormalizeURL(raw)
			if nerr != nil {
				url = strings.TrimSpace(raw)
			}
			if url == "" {
				continue
			}
			if err := o.store.InsertSuggestion(ctx, url); err != nil {
				return nil, nil, err
			}
		}
		return nil, nil, fmt.Errorf("user %q: %w", userID, util.ErrUnauthorized)
	}

	results = make([]models.IngestResult, 0, len(rawURLs))
	for _, raw := range rawURLs {
		url, err := o.admitKnown(ctx, raw, userID)
		if err != nil {
			if url == "" {
				url = raw
			}
			o.log.Info("batch url rejected", "url", url, "user_id", userID, "status", util.StatusOf(err), "err", err)
			results = append(results, Result(url, err))
			continue
		}
		admitted = append(admitted, url)
		results = append(results, models.IngestResult{URL: url, Status: util.StatusOK, Message: MessageAccepted})
	}
	return admitted, results, nil
}

// MessageAccepted reports a URL handed to background ingestion.
const MessageAccepted = "Accepted for ingestion"

func (o *Orchestrator) admitKnown(ctx context.Context, raw, userID string) (string, error) {
	url, err := NormalizeURL(raw)
	if err != nil {
		return "", err
	}
	exists, err := o.store.PageExists(ctx, url)
	if err != nil {
		return url, err
	}
	if exists {
		return url, fmt.Errorf("%s: %w", url, util.ErrDuplicate)
	}
	if err := o.store.Enqueue(ctx, url, userID); err != nil {
		return url, err
	}
	return url, nil
}
