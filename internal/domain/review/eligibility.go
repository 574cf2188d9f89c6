package review

import (
	"context"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrNotBookingRequester  = errs.NewKind(errs.ErrForbidden, "only the requester of a booking may review it")
	ErrBookingNotReviewable = errs.NewKind(errs.ErrInvalidTransition, "booking must be accepted or completed to be reviewed")
	ErrReviewAlreadyExists  = errs.NewKind(errs.ErrConflict, "booking has already been reviewed")
)

type EligibilityInput struct {
	BookingID       uuid.UUID
	ActorID         uuid.UUID
	RequesterID     uuid.UUID
	ProviderUserID  uuid.UUID
	Status          booking.Status
	AlreadyReviewed bool
}

func InputFor(b *booking.Booking, actorID uuid.UUID, reviewed bool) EligibilityInput {
	return EligibilityInput{
		BookingID:       b.ID(),
		ActorID:         actorID,
		RequesterID:     b.RequesterID(),
		ProviderUserID:  b.ProviderUserID(),
		Status:          b.Status(),
		AlreadyReviewed: reviewed,
	}
}

// EligibilityChecker must be called by the review subsystem before it
// persists a review. A nil error means the actor may review the booking.
type EligibilityChecker interface {
	CanPostReview(ctx context.Context, bookingID, actorID uuid.UUID) error
}

// CheckEligibility checks the requester first, then the status, then the
// one-review rule.
func CheckEligibility(input EligibilityInput) error {
	if input.ActorID == uuid.Nil || input.ActorID != input.RequesterID {
		return ErrNotBookingRequester
	}
	if input.Status != booking.StatusAccepted && input.Status != booking.StatusCompleted {
		return ErrBookingNotReviewable
	}
	if input.AlreadyReviewed {
		return ErrReviewAlreadyExists
	}
	return nil
}
