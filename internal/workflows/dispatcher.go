package workflows

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"websift/internal/ingest"
	"websift/internal/util"

	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	tclient "go.temporal.io/sdk/client"
)

// TemporalDispatcher starts one IngestURLWorkflow per admitted URL. The
// workflow ID is derived from the URL so a second submission while one is
// running is rejected by the server.
type TemporalDispatcher struct {
	client    tclient.Client
	taskQueue string
	log       *slog.Logger
}

func NewTemporalDispatcher(c tclient.Client, taskQueue string, log *slog.Logger) *TemporalDispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &TemporalDispatcher{client: c, taskQueue: taskQueue, log: log}
}

func WorkflowID(url string) string {
	return "ingest-" + util.SHA256Hex(url)
}

func (d *TemporalDispatcher) Dispatch(ctx context.Context, url, userID string) error {
	we, err := d.client.ExecuteWorkflow(ctx, tclient.StartWorkflowOptions{
		ID:                                       WorkflowID(url),
		TaskQueue:                                d.taskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, IngestURLWorkflow, IngestURLInput{URL: url, UserID: userID})
	if err != nil {
		var started *serviceerror.WorkflowExecutionAlreadyStarted
		if errors.As(err, &started) {
			return fmt.Errorf("%s already in flight: %w", url, util.ErrDuplicate)
		}
		return fmt.Errorf("start ingest workflow: %w", err)
	}
	d.log.Info("ingestion dispatched", "url", url, "user_id", userID, "dispatcher", "temporal",
		"workflow_id", we.GetID(), "run_id", we.GetRunID())
	return nil
}

func (d *TemporalDispatcher) Progress(ctx context.Context, url string) (ingest.Progress, error) {
	resp, err := d.client.QueryWorkflow(ctx, WorkflowID(url), "", QueryGetIngestStatus)
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return ingest.Progress{}, ingest.ErrUnknownIngestion
		}
		return ingest.Progress{}, fmt.Errorf("query ingest workflow: %w", err)
	}
	var st IngestStatus
	if err := resp.Get(&st); err != nil {
		return ingest.Progress{}, fmt.Errorf("decode ingest status: %w", err)
	}
	return toProgress(st), nil
}

func toProgress(st IngestStatus) ingest.Progress {
	p := ingest.Progress{
		URL:       st.URL,
		Step:      ingest.Step(st.CurrentStep),
		Error:     st.FailReason,
		PageID:    st.PageID,
		Chunks:    st.Chunks,
		UpdatedAt: time.Now(),
	}
	if st.Status == StatusFailed || st.Status == StatusDuplicate {
		p.Step = ingest.StepFailed
	}
	return p
}
