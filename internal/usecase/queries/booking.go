package queries

import (
	"context"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/review"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrInvalidListRole = errs.NewKind(errs.ErrValidation, "role must be requester or provider")

var tracer = otel.Tracer("tutor-booking/usecase/queries")

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/queries/booking_mock.go -package=queriesmock

type BookingQueries interface {
	// GetBooking returns the booking as seen by one of its participants.
	GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingView, error)
	ListMyBookings(ctx context.Context, actorID uuid.UUID, opts ListOptions) (*BookingPage, error)
	GetProviderStats(ctx context.Context, providerID uuid.UUID) (*ProviderStats, error)
	CanPostReview(ctx context.Context, bookingID, actorID uuid.UUID) error
}

var _ review.EligibilityChecker = (*bookingQueriesImpl)(nil)

type bookingQueriesImpl struct {
	uow shared.UnitOfWork
}

func NewBookingQueries(uow shared.UnitOfWork) BookingQueries {
	return &bookingQueriesImpl{uow: uow}
}

func (q *bookingQueriesImpl) GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*BookingView, error) {
	ctx, span := tracer.Start(ctx, "GetBooking", trace.WithAttributes(attribute.String("booking.id", bookingID.String())))
	defer span.End()

	view, err := shared.ReadWithRetry(ctx, "GetBooking", func(ctx context.Context) (*BookingView, error) {
		var view *BookingView
		err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.ReadTx) error {
			b, err := tx.Bookings().FindByID(ctx, bookingID)
			if err != nil {
				return mapNotFound(err, booking.ErrBookingNotFound)
			}
			if !b.IsParticipant(actorID) {
				return booking.ErrNotParticipant
			}
			reviewed, err := tx.Reviews().ReviewedBookings(ctx, []uuid.UUID{b.ID()})
			if err != nil {
				return err
			}
			view = NewBookingView(b, actorID, reviewed[b.ID()])
			return nil
		})
		return view, err
	})
	return view, recordErr(span, err)
}

func (q *bookingQueriesImpl) ListMyBookings(ctx context.Context, actorID uuid.UUID, opts ListOptions) (*BookingPage, error) {
	ctx, span := tracer.Start(ctx, "ListMyBookings")
	defer span.End()

	filter, err := toFilter(opts)
	if err != nil {
		return nil, recordErr(span, err)
	}

	page, err := shared.ReadWithRetry(ctx, "ListMyBookings", func(ctx context.Context) (*BookingPage, error) {
		page := &BookingPage{Items: []*BookingView{}}
		err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.ReadTx) error {
			// one extra row tells whether another page exists
			lookahead := filter
			lookahead.Limit = filter.Limit + 1
			bookings, err := tx.Bookings().ListByParticipant(ctx, actorID, lookahead)
			if err != nil {
				return err
			}
			if len(bookings) > filter.Limit {
				bookings = bookings[:filter.Limit]
				page.NextCursor = cursorFor(bookings[len(bookings)-1])
			}

			ids := make([]uuid.UUID, len(bookings))
			for i, b := range bookings {
				ids[i] = b.ID()
			}
			reviewed, err := tx.Reviews().ReviewedBookings(ctx, ids)
			if err != nil {
				return err
			}
			for _, b := range bookings {
				page.Items = append(page.Items, NewBookingView(b, actorID, reviewed[b.ID()]))
			}
			return nil
		})
		return page, err
	})
	return page, recordErr(span, err)
}

func (q *bookingQueriesImpl) GetProviderStats(ctx context.Context, providerID uuid.UUID) (*ProviderStats, error) {
	ctx, span := tracer.Start(ctx, "GetProviderStats", trace.WithAttributes(attribute.String("provider.id", providerID.String())))
	defer span.End()

	bookings, err := shared.ReadWithRetry(ctx, "GetProviderStats", func(ctx context.Context) ([]*booking.Booking, error) {
		var bookings []*booking.Booking
		err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.ReadTx) error {
			if _, err := tx.Providers().FindProvider(ctx, providerID); err != nil {
				return mapNotFound(err, booking.ErrProviderNotFound)
			}
			var err error
			bookings, err = tx.Bookings().ListByProvider(ctx, providerID)
			return err
		})
		return bookings, err
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	// the fold runs outside the transaction
	stats := booking.FoldStats(bookings)
	out := &ProviderStats{
		ProviderID: providerID,
		Pending:    stats.Pending,
		Active:     stats.Active,
		Completed:  stats.Completed,
		Earnings:   make([]MoneyView, 0, len(stats.Earnings)),
	}
	for _, m := range stats.Earnings {
		out.Earnings = append(out.Earnings, NewMoneyView(m))
	}
	return out, nil
}

// CanPostReview is the eligibility gate the review subsystem calls before
// storing a review.
func (q *bookingQueriesImpl) CanPostReview(ctx context.Context, bookingID, actorID uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "CanPostReview", trace.WithAttributes(attribute.String("booking.id", bookingID.String())))
	defer span.End()

	input, err := shared.ReadWithRetry(ctx, "CanPostReview", func(ctx context.Context) (review.EligibilityInput, error) {
		var input review.EligibilityInput
		err := q.uow.WithinReadOnly(ctx, func(ctx context.Context, tx shared.ReadTx) error {
			b, err := tx.Bookings().FindByID(ctx, bookingID)
			if err != nil {
				return mapNotFound(err, booking.ErrBookingNotFound)
			}
			reviewed, err := tx.Reviews().ReviewedBookings(ctx, []uuid.UUID{bookingID})
			if err != nil {
				return err
			}
			input = review.InputFor(b, actorID, reviewed[bookingID])
			return nil
		})
		return input, err
	})
	if err != nil {
		return recordErr(span, err)
	}
	return recordErr(span, review.CheckEligibility(input))
}

func toFilter(opts ListOptions) (shared.ListFilter, error) {
	filter := shared.ListFilter{Limit: ValidateLimit(opts.Limit)}

	switch booking.Role(opts.Role) {
	case booking.RoleNone:
	case booking.RoleRequester, booking.RoleProvider:
		filter.Role = booking.Role(opts.Role)
	default:
		return filter, ErrInvalidListRole
	}

	if opts.Status != "" {
		status, err := booking.ParseStatus(opts.Status)
		if err != nil {
			return filter, err
		}
		filter.Status = &status
	}

	after, err := opts.After.keyset()
	if err != nil {
		return filter, err
	}
	filter.After = after
	return filter, nil
}

func mapNotFound(err, domainErr error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return domainErr
	}
	return err
}

// recordErr marks the span failed for unexpected errors only.
func recordErr(span trace.Span, err error) error {
	if err == nil {
		return nil
	}
	if errs.KindOf(err) == errs.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("error.kind", string(errs.KindOf(err))))
	}
	return err
}
