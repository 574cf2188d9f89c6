package repository

import (
	"context"
	"time"

	"tutor-booking/internal/infra"
	"tutor-booking/internal/infra/db"
	"tutor-booking/internal/pkg/pgconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	JobStatusQueued = "queued"
	JobStatusSent   = "sent"
	JobStatusFailed = "failed"
)

type NotificationJob struct {
	ID          uuid.UUID
	BookingID   uuid.UUID
	Event       string
	RecipientID uuid.UUID
	Payload     []byte
	Status      string
	Attempts    int
	RunAt       time.Time
	LastError   *string
}

type NotificationRepository struct {
	db db.DBTX
}

func NewNotificationRepository(db db.DBTX) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Enqueue(ctx context.Context, job NotificationJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO notification_jobs (id, booking_id, event, recipient_id, payload, status, run_at)
		VALUES ($1, $2, $3, $4, $5, 'queued', $6)`,
		job.ID, job.BookingID, job.Event, job.RecipientID, job.Payload, pgconv.TimeToPgtype(job.RunAt),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create notification job", err)
	}
	return nil
}

// ClaimDue locks up to limit due jobs. Concurrent relays skip rows another
// relay already holds, so callers must run it inside a transaction.
func (r *NotificationRepository) ClaimDue(ctx context.Context, now time.Time, limit int) ([]NotificationJob, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, event, recipient_id, payload, status, attempts, run_at, last_error
		FROM notification_jobs
		WHERE status = 'queued' AND run_at <= $1
		ORDER BY run_at, created_at
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, pgconv.TimeToPgtype(now), limit)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to claim notification jobs", err)
	}

	jobs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (NotificationJob, error) {
		var (
			j         NotificationJob
			runAt     pgtype.Timestamptz
			lastError pgtype.Text
		)
		err := row.Scan(&j.ID, &j.BookingID, &j.Event, &j.RecipientID, &j.Payload, &j.Status, &j.Attempts, &runAt, &lastError)
		j.RunAt = pgconv.TimeFromPgtype(runAt)
		j.LastError = pgconv.StringPtrFromPgtype(lastError)
		return j, err
	})
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan notification jobs", err)
	}
	return jobs, nil
}

func (r *NotificationRepository) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.update(ctx, `
		UPDATE notification_jobs
		SET status = 'sent', attempts = attempts + 1, last_error = NULL, updated_at = $2
		WHERE id = $1`, id, pgconv.TimeToPgtype(at))
}

// MarkRetry keeps the job queued and pushes run_at forward.
func (r *NotificationRepository) MarkRetry(ctx context.Context, id uuid.UUID, runAt time.Time, lastError string) error {
	return r.update(ctx, `
		UPDATE notification_jobs
		SET attempts = attempts + 1, run_at = $2, last_error = $3, updated_at = now()
		WHERE id = $1`, id, pgconv.TimeToPgtype(runAt), lastError)
}

func (r *NotificationRepository) MarkFailed(ctx context.Context, id uuid.UUID, lastError string) error {
	return r.update(ctx, `
		UPDATE notification_jobs
		SET status = 'failed', attempts = attempts + 1, last_error = $2, updated_at = now()
		WHERE id = $1`, id, lastError)
}

func (r *NotificationRepository) update(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return infra.WrapRepoErr("failed to update notification job status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindNotFound, "notification job not found")
	}
	return nil
}
