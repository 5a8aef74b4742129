package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rosterhq/roster/internal/logger"
	"github.com/rosterhq/roster/pkg/controlplane/models"
	"github.com/rosterhq/roster/pkg/queue"
)

// TaskPayload is the queue message body for one ingestion run. The job id
// doubles as the queue key, so runs for the same job never overlap.
type TaskPayload struct {
	JobID           string `json:"job_id"`
	ResumeFrom      int64  `json:"resume_from,omitempty"`
	InitialInserted int64  `json:"initial_inserted,omitempty"`
	InitialRejected int64  `json:"initial_rejected,omitempty"`
}

// EnqueueTask marshals the payload and appends it to the queue under the
// job's key.
func EnqueueTask(ctx context.Context, q queue.Queue, p TaskPayload) (uint64, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return 0, fmt.Errorf("failed to encode task for job %s: %w", p.JobID, err)
	}
	seq, err := q.Enqueue(ctx, p.JobID, data)
	if err != nil {
		return 0, fmt.Errorf("failed to enqueue task for job %s: %w", p.JobID, err)
	}
	return seq, nil
}

// NewHandler adapts the orchestrator to the queue's handler contract.
//
// An interrupted run (daemon shutdown mid-job) is requeued with fresh
// offsets and the old delivery acked; the restarted daemon picks the job
// back up where it paused. If the requeue fails the job simply stays
// PAUSED for a manual resume.
func NewHandler(orch *Orchestrator, jobs models.JobStore, q queue.Queue) queue.Handler {
	return func(ctx context.Context, msg *queue.Message) error {
		var p TaskPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			logger.Error("Dropping malformed ingestion task",
				logger.KeySeq, msg.Seq,
				logger.KeyQueueKey, msg.Key,
				logger.KeyError, err,
			)
			return nil
		}

		err := orch.Run(ctx, p.JobID, RunOptions{
			ResumeFrom:      p.ResumeFrom,
			InitialInserted: p.InitialInserted,
			InitialRejected: p.InitialRejected,
		})
		if errors.Is(err, ErrInterrupted) {
			requeueInterrupted(jobs, q, p.JobID)
			return nil
		}
		return err
	}
}

// NewExhaustedFunc marks a job failed once its task has burned every
// delivery attempt, so the failure is visible in job status instead of
// vanishing with the dropped message.
func NewExhaustedFunc(jobs models.JobStore) queue.ExhaustedFunc {
	return func(ctx context.Context, msg *queue.Message, err error) {
		var p TaskPayload
		if jsonErr := json.Unmarshal(msg.Payload, &p); jsonErr != nil {
			return
		}
		reason := fmt.Sprintf("Processing attempts exhausted: %v", err)
		if markErr := jobs.MarkJobFailed(context.WithoutCancel(ctx), p.JobID, reason); markErr != nil && !errors.Is(markErr, models.ErrInvalidTransition) {
			logger.Error("Failed to mark exhausted job failed",
				logger.KeyJobID, p.JobID,
				logger.KeyError, markErr,
			)
		}
	}
}

// requeueInterrupted re-enqueues a job that was parked by shutdown. Runs
// detached from the canceled run context.
func requeueInterrupted(jobs models.JobStore, q queue.Queue, jobID string) {
	ctx := context.Background()
	job, err := jobs.GetJob(ctx, jobID)
	if err != nil {
		logger.Warn("Interrupted job not requeued; resume it manually",
			logger.KeyJobID, jobID,
			logger.KeyError, err,
		)
		return
	}
	seq, err := EnqueueTask(ctx, q, TaskPayload{
		JobID:           jobID,
		ResumeFrom:      job.ResumeFrom,
		InitialInserted: job.RowsInserted,
		InitialRejected: job.RowsRejected,
	})
	if err != nil {
		logger.Warn("Interrupted job not requeued; resume it manually",
			logger.KeyJobID, jobID,
			logger.KeyError, err,
		)
		return
	}
	logger.Info("Interrupted job requeued",
		logger.KeyJobID, jobID,
		logger.KeySeq, seq,
		logger.KeyResumeFrom, job.ResumeFrom,
	)
}
