package shared

import (
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/user"

	"github.com/google/uuid"
)

// Snapshots returned by directories owned by other subsystems

type ProviderSnapshot struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	HourlyRate  booking.Money
}

func (p ProviderSnapshot) Spec() booking.ProviderSpec {
	return booking.ProviderSpec{ID: p.ID, UserID: p.UserID, HourlyRate: p.HourlyRate}
}

type UserSnapshot struct {
	ID          uuid.UUID
	DisplayName string
	Role        user.Role
}

type Notification struct {
	BookingID   uuid.UUID
	Event       booking.EventType
	RecipientID uuid.UUID
	ActorID     uuid.UUID
	Status      booking.Status
	Message     string
	OccurredAt  time.Time
}
