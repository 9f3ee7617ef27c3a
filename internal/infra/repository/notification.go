package repository

import (
	"context"
	"time"

	"culture-booking/internal/infra/db"
	"culture-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// NotificationRepository is the transactional outbox: jobs are written
// inside the transaction that makes them true (booking confirmed,
// payment flagged) and drained asynchronously by the worker.
type NotificationRepository struct {
	db db.DBTX
}

func NewNotificationRepository(dbtx db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: dbtx}
}

const createJobSQL = `
INSERT INTO notification_jobs (id, kind, topic, payload, status, run_at)
VALUES ($1, $2, $3, $4, 'queued', $5)`

func (r *NotificationRepository) CreateJob(ctx context.Context, kind, topic string, payload []byte, runAt time.Time) error {
	_, err := r.db.Exec(ctx, createJobSQL, uuid.New(), kind, topic, payload, runAt)
	if err != nil {
		return wrapWriteErr("failed to create notification job", err)
	}
	return nil
}

const claimDueJobsSQL = `
UPDATE notification_jobs
SET status = 'sending', attempts = attempts + 1
WHERE id IN (
	SELECT id FROM notification_jobs
	WHERE status = 'queued' AND run_at <= $1
	ORDER BY run_at
	LIMIT $2
	FOR UPDATE SKIP LOCKED
)
RETURNING id, kind, topic, payload, attempts`

func (r *NotificationRepository) ClaimDueJobs(ctx context.Context, now time.Time, limit int32) ([]shared.NotificationJob, error) {
	rows, err := r.db.Query(ctx, claimDueJobsSQL, now, limit)
	if err != nil {
		return nil, wrapWriteErr("failed to claim due notification jobs", err)
	}
	defer rows.Close()

	var jobs []shared.NotificationJob
	for rows.Next() {
		var job shared.NotificationJob
		if err := rows.Scan(&job.ID, &job.Kind, &job.Topic, &job.Payload, &job.Attempts); err != nil {
			return nil, wrapWriteErr("failed to scan notification job", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapWriteErr("failed to iterate notification jobs", err)
	}
	return jobs, nil
}

const markJobStatusSQL = `
UPDATE notification_jobs
SET status = $2, last_error = $3
WHERE id = $1`

func (r *NotificationRepository) MarkJobStatus(ctx context.Context, jobID uuid.UUID, status string, lastError *string) error {
	_, err := r.db.Exec(ctx, markJobStatusSQL, jobID, status, lastError)
	if err != nil {
		return wrapWriteErr("failed to update notification job status", err)
	}
	return nil
}
