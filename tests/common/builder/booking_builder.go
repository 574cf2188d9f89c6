//go:build unit || e2e

package builder

import (
	"time"

	"tutor-booking/internal/domain/booking"
	reqdto "tutor-booking/internal/handler/dto/request"
	"tutor-booking/internal/pkg/ptr"

	"github.com/google/uuid"
)

type BookingBuilder struct {
	RequesterID    uuid.UUID
	ProviderID     uuid.UUID
	ProviderUserID uuid.UUID
	RateMinor      int64
	Currency       string
	Mode           string
	PreferredDate  *string
	Message        *string
	Now            time.Time
}

func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		RequesterID:    uuid.New(),
		ProviderID:     uuid.New(),
		ProviderUserID: uuid.New(),
		RateMinor:      4000,
		Currency:       "GBP",
		Mode:           booking.ModeRemote.String(),
		PreferredDate:  ptr.Of("Tuesday evenings"),
		Message:        ptr.Of("Hi"),
		Now:            time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC),
	}
}

func (b *BookingBuilder) With(mutate func(*BookingBuilder)) *BookingBuilder {
	mutate(b)
	return b
}

func (b *BookingBuilder) ProviderSpec() booking.ProviderSpec {
	rate, _ := booking.NewMoney(b.RateMinor, b.Currency)
	return booking.ProviderSpec{ID: b.ProviderID, UserID: b.ProviderUserID, HourlyRate: rate}
}

func (b *BookingBuilder) BuildDomain() (*booking.Booking, error) {
	date, err := booking.NewPreferredDate(b.PreferredDate)
	if err != nil {
		return nil, err
	}
	opening, err := booking.NewOptionalMessageContent(b.Message)
	if err != nil {
		return nil, err
	}
	return booking.NewBooking(b.Now, b.RequesterID, b.ProviderSpec(), booking.SessionMode(b.Mode), date, opening)
}

// MustBuildDomain builds a booking and moves it through the given statuses,
// acting as whichever participant is allowed to make each change.
func (b *BookingBuilder) MustBuildDomain(path ...booking.Status) *booking.Booking {
	bk, err := b.BuildDomain()
	if err != nil {
		panic(err)
	}
	guard := booking.NewTransitionGuard()
	now := b.Now
	for _, next := range path {
		now = now.Add(time.Minute)
		actor := b.ProviderUserID
		if !guard.Allows(bk.Status(), booking.RoleProvider, next) {
			actor = b.RequesterID
		}
		if _, err := bk.Transition(actor, next, nil, now); err != nil {
			panic(err)
		}
	}
	return bk
}

func (b *BookingBuilder) BuildCreateRequestDTO() reqdto.CreateBookingRequest {
	return reqdto.CreateBookingRequest{
		ProviderID:    b.ProviderID,
		SessionMode:   b.Mode,
		PreferredDate: b.PreferredDate,
		Message:       b.Message,
	}
}
