package commands

import (
	"context"
	"fmt"
	"log/slog"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// notifyChange tells the participant who did not act about a new status.
func (e *bookingEngine) notifyChange(ctx context.Context, b *booking.Booking, actorID uuid.UUID, event booking.EventType) {
	role := b.ActorFor(actorID).Role
	e.notify(ctx, shared.Notification{
		BookingID:   b.ID(),
		Event:       event,
		RecipientID: b.Counterpart(actorID),
		ActorID:     actorID,
		Status:      b.Status(),
		Message:     describe(event, e.displayName(ctx, actorID, role), b),
		OccurredAt:  b.UpdatedAt(),
	})
}

// notify never fails the caller. It runs on a context detached from the
// request so a client disconnect does not drop the event.
func (e *bookingEngine) notify(ctx context.Context, n shared.Notification) {
	if n.RecipientID == uuid.Nil {
		return
	}
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.NotifyTimeout)
	defer cancel()

	if err := e.notifier.Notify(nctx, n); err != nil {
		slog.WarnContext(ctx, "notification failed, booking change kept",
			"booking_id", n.BookingID.String(),
			"event", string(n.Event),
			"recipient_id", n.RecipientID.String(),
			"error", err.Error(),
		)
	}
}

func (e *bookingEngine) displayName(ctx context.Context, userID uuid.UUID, role booking.Role) string {
	if u, err := e.users.FindUser(ctx, userID); err == nil && u.DisplayName != "" {
		return u.DisplayName
	}
	switch role {
	case booking.RoleRequester:
		return "Your student"
	case booking.RoleProvider:
		return "Your tutor"
	default:
		return "Someone"
	}
}

func describe(event booking.EventType, actor string, b *booking.Booking) string {
	switch event {
	case booking.EventCreated:
		return fmt.Sprintf("%s requested a session at %s/hr", actor, b.Price().Format())
	case booking.EventAccepted:
		return actor + " accepted your booking request"
	case booking.EventDeclined:
		return actor + " declined your booking request"
	case booking.EventCancelled:
		return actor + " cancelled the booking"
	case booking.EventCompleted:
		return actor + " marked the session as completed"
	default:
		return "Your booking was updated"
	}
}
