//go:build unit

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/infra/repository"
	"tutor-booking/internal/infra/ws"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingQueue struct {
	jobs []repository.NotificationJob
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job repository.NotificationJob) error {
	if q.err != nil {
		return q.err
	}
	q.jobs = append(q.jobs, job)
	return nil
}

type recordingPusher struct {
	users  []uuid.UUID
	events []ws.Event
}

func (p *recordingPusher) Push(userID uuid.UUID, ev ws.Event) int {
	p.users = append(p.users, userID)
	p.events = append(p.events, ev)
	return 1
}

func sampleNotification() shared.Notification {
	return shared.Notification{
		BookingID:   uuid.New(),
		Event:       booking.EventAccepted,
		RecipientID: uuid.New(),
		ActorID:     uuid.New(),
		Status:      booking.StatusAccepted,
		Message:     "Bob accepted your booking request",
		OccurredAt:  time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	}
}

func TestOutboxNotifier_EnqueuesAndPushes(t *testing.T) {
	queue := &recordingQueue{}
	pusher := &recordingPusher{}
	n := NewOutboxNotifier(queue, pusher)
	note := sampleNotification()

	require.NoError(t, n.Notify(context.Background(), note))

	require.Len(t, queue.jobs, 1)
	job := queue.jobs[0]
	assert.Equal(t, note.BookingID, job.BookingID)
	assert.Equal(t, "booking.accepted", job.Event)
	assert.Equal(t, note.RecipientID, job.RecipientID)
	assert.True(t, job.RunAt.Equal(note.OccurredAt))

	var p Payload
	require.NoError(t, json.Unmarshal(job.Payload, &p))
	assert.Equal(t, job.ID, p.JobID)
	assert.Equal(t, "accepted", p.Status)
	assert.Equal(t, note.Message, p.Message)

	require.Len(t, pusher.users, 1)
	assert.Equal(t, note.RecipientID, pusher.users[0])
	assert.Equal(t, "booking.accepted", pusher.events[0].Type)
}

func TestOutboxNotifier_EnqueueFailureIsReturned(t *testing.T) {
	boom := errors.New("db down")
	pusher := &recordingPusher{}
	n := NewOutboxNotifier(&recordingQueue{err: boom}, pusher)

	err := n.Notify(context.Background(), sampleNotification())

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, pusher.events, 1, "live push is attempted regardless")
}

func TestOutboxNotifier_NilPusher(t *testing.T) {
	queue := &recordingQueue{}
	n := NewOutboxNotifier(queue, nil)

	require.NoError(t, n.Notify(context.Background(), sampleNotification()))
	assert.Len(t, queue.jobs, 1)
}
