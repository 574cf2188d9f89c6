package notify

import (
	"context"
	"encoding/json"
	"time"

	"tutor-booking/internal/infra/repository"
	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// Payload is the JSON body stored in notification_jobs, published to the
// broker and pushed over websockets. JobID is stable across redeliveries.
type Payload struct {
	JobID       uuid.UUID `json:"job_id"`
	BookingID   uuid.UUID `json:"booking_id"`
	Event       string    `json:"event"`
	RecipientID uuid.UUID `json:"recipient_id"`
	ActorID     uuid.UUID `json:"actor_id"`
	Status      string    `json:"status"`
	Message     string    `json:"message"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type JobQueue interface {
	Enqueue(ctx context.Context, job repository.NotificationJob) error
}

// Pusher is the live channel; nil disables it.
type Pusher interface {
	Push(userID uuid.UUID, ev ws.Event) int
}

// OutboxNotifier records every notification as a queued job for the relay and
// pushes it to connected clients right away.
type OutboxNotifier struct {
	jobs   JobQueue
	pusher Pusher
	newID  func() uuid.UUID
}

func NewOutboxNotifier(jobs JobQueue, pusher Pusher) *OutboxNotifier {
	return &OutboxNotifier{jobs: jobs, pusher: pusher, newID: uuid.New}
}

var _ shared.NotificationPort = (*OutboxNotifier)(nil)

func (n *OutboxNotifier) Notify(ctx context.Context, note shared.Notification) error {
	p := Payload{
		JobID:       n.newID(),
		BookingID:   note.BookingID,
		Event:       note.Event.String(),
		RecipientID: note.RecipientID,
		ActorID:     note.ActorID,
		Status:      note.Status.String(),
		Message:     note.Message,
		OccurredAt:  note.OccurredAt.UTC(),
	}

	if n.pusher != nil {
		n.pusher.Push(note.RecipientID, ws.Event{Type: p.Event, Data: p})
	}

	body, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(err, "encode notification payload")
	}
	runAt := note.OccurredAt
	if runAt.IsZero() {
		runAt = time.Now()
	}
	if err := n.jobs.Enqueue(ctx, repository.NotificationJob{
		ID:          p.JobID,
		BookingID:   p.BookingID,
		Event:       p.Event,
		RecipientID: p.RecipientID,
		Payload:     body,
		RunAt:       runAt,
	}); err != nil {
		return errs.Wrap(err, "enqueue notification")
	}
	return nil
}
