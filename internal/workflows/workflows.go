package workflows

import (
	"errors"
	"time"

	"websift/internal/activities"
	"websift/internal/ingest"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const QueryGetIngestStatus = "GetIngestStatus"

const (
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusDuplicate  = "duplicate"
	StatusFailed     = "failed"
)

// IngestURLWorkflow fetches, summarizes, embeds and stores one admitted URL.
// Activities run once; a failure leaves the queue entry for the URL in place.
func IngestURLWorkflow(ctx workflow.Context, input IngestURLInput) (string, error) {
	status := IngestStatus{
		URL:         input.URL,
		CurrentStep: string(ingest.StepQueued),
		Status:      StatusProcessing,
		Steps:       map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetIngestStatus, func() (IngestStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)
	logger := workflow.GetLogger(ctx)

	begin := func(step ingest.Step) {
		status.CurrentStep = string(step)
		status.Steps[status.CurrentStep] = StatusProcessing
	}
	fail := func(err error) (string, error) {
		status.FailReason = err.Error()
		if isDuplicate(err) {
			status.Status = StatusDuplicate
			status.Steps[status.CurrentStep] = StatusDuplicate
			logger.Info("page stored concurrently", "url", input.URL)
			return status.Status, nil
		}
		status.Status = StatusFailed
		status.Steps[status.CurrentStep] = StatusFailed
		logger.Error("ingestion failed", "url", input.URL, "step", status.CurrentStep, "error", err)
		return "", err
	}

	begin(ingest.StepFetch)
	var page activities.FetchPageOutput
	if err := workflow.ExecuteActivity(ctx, "FetchPageActivity", activities.FetchPageInput{URL: input.URL}).Get(ctx, &page); err != nil {
		return fail(err)
	}
	status.Steps[status.CurrentStep] = "done"

	begin(ingest.StepSummarize)
	var sum activities.SummarizePageOutput
	if err := workflow.ExecuteActivity(ctx, "SummarizePageActivity", activities.SummarizePageInput{URL: input.URL, Headings: page.Headings, BodyKey: page.BodyKey}).Get(ctx, &sum); err != nil {
		return fail(err)
	}
	status.Steps[status.CurrentStep] = "done"

	begin(ingest.StepEmbedStore)
	var stored activities.EmbedAndStoreOutput
	if err := workflow.ExecuteActivity(ctx, "EmbedAndStoreActivity", activities.EmbedAndStoreInput{
		URL:         input.URL,
		UserID:      input.UserID,
		BodyKey:     page.BodyKey,
		Title:       sum.Title,
		Description: sum.Description,
	}).Get(ctx, &stored); err != nil {
		return fail(err)
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = string(ingest.StepCompleted)
	status.Status = StatusCompleted
	status.PageID = stored.PageID
	status.Chunks = stored.Chunks
	return status.Status, nil
}

func isDuplicate(err error) bool {
	var appErr *temporal.ApplicationError
	return errors.As(err, &appErr) && appErr.Type() == activities.ErrTypeDuplicate
}
