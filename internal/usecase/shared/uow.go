package shared

import (
	"context"
	"time"

	"tutor-booking/internal/domain/booking"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within: write transaction. Runs fn exactly once; callers never retry mutations.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// WithinReadOnly: read-only transaction for consistent multi-table reads
	WithinReadOnly(ctx context.Context, fn func(ctx context.Context, tx ReadTx) error) error
}

type Tx interface {
	Bookings() BookingStore
	Reviews() ReviewLookup
	Providers() ProviderDirectory
}

type ReadTx interface {
	Bookings() BookingReader
	Reviews() ReviewLookup
	Providers() ProviderDirectory
}

type ListFilter struct {
	Status *booking.Status
	Role   booking.Role // RoleNone lists both sides
	After  *Keyset
	Limit  int
}

// Keyset is the position of the last row of the previous page in
// (created_at DESC, id DESC) order.
type Keyset struct {
	CreatedAt time.Time
	ID        uuid.UUID
}

// Before reports whether a row at (createdAt, id) comes after k in listing order.
func (k Keyset) Before(createdAt time.Time, id uuid.UUID) bool {
	if !createdAt.Equal(k.CreatedAt) {
		return createdAt.Before(k.CreatedAt)
	}
	return id.String() < k.ID.String()
}

type BookingReader interface {
	// FindByID loads the booking with its full thread.
	FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	// ListByParticipant returns bookings where userID holds either slot, newest first, threads included.
	ListByParticipant(ctx context.Context, userID uuid.UUID, filter ListFilter) ([]*booking.Booking, error)
	// ListByProvider returns every booking of a provider profile without threads.
	ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*booking.Booking, error)
}

type BookingStore interface {
	BookingReader
	// FindForUpdate locks the booking row for the rest of the transaction.
	FindForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error)
	ExistsPending(ctx context.Context, requesterID, providerID uuid.UUID) (bool, error)
	// Create persists the booking and its opening message. A second pending
	// booking for the same pair fails with ErrDuplicatePending.
	Create(ctx context.Context, b *booking.Booking) error
	// SaveTransition writes status, updated_at and version, guarded by the
	// previous version, and appends the note when present.
	SaveTransition(ctx context.Context, b *booking.Booking, note *booking.Message) error
	AppendMessage(ctx context.Context, m *booking.Message) error
	MarkThreadRead(ctx context.Context, bookingID, readerID uuid.UUID, at time.Time) (int, error)
}

type ReviewLookup interface {
	// ReviewedBookings reports which of the given bookings already have a review.
	ReviewedBookings(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]bool, error)
}

type ProviderDirectory interface {
	FindProvider(ctx context.Context, providerID uuid.UUID) (*ProviderSnapshot, error)
}
