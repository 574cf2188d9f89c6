package commands

import (
	"context"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/pkg/clock"
	"tutor-booking/internal/pkg/config"
	"tutor-booking/internal/pkg/errs"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var ErrConcurrentUpdate = errs.New("booking was changed by another request")

var tracer = otel.Tracer("tutor-booking/usecase/commands")

type CreateBookingInput struct {
	RequesterID    uuid.UUID
	ProviderID     uuid.UUID
	SessionMode    string
	PreferredDate  *string
	OpeningMessage *string
}

// TransitionResult is the booking after a status change and whether a review
// is already attached to it, read in the same transaction.
type TransitionResult struct {
	Booking      *booking.Booking
	ReviewLinked bool
}

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/commands/booking_mock.go -package=commandsmock

// BookingCommands is the booking lifecycle engine. Every mutation runs once in
// a single transaction; the counterpart is notified after commit.
type BookingCommands interface {
	CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error)
	RespondToBooking(ctx context.Context, actorID, bookingID uuid.UUID, target booking.Status, message *string) (*TransitionResult, error)
	CancelBooking(ctx context.Context, actorID, bookingID uuid.UUID, message *string) (*TransitionResult, error)
	CompleteBooking(ctx context.Context, actorID, bookingID uuid.UUID, message *string) (*TransitionResult, error)
	SendMessage(ctx context.Context, actorID, bookingID uuid.UUID, content string) (*booking.Message, error)
	MarkThreadRead(ctx context.Context, actorID, bookingID uuid.UUID) (int, error)
}

type EngineOptions struct {
	NotifyTimeout   time.Duration
	NotifyOnMessage bool
}

func OptionsFromConfig(cfg config.Config) EngineOptions {
	return EngineOptions{
		NotifyTimeout:   cfg.Notify.Timeout,
		NotifyOnMessage: cfg.Notify.PushMessages,
	}
}

type bookingEngine struct {
	uow      shared.UnitOfWork
	users    shared.UserDirectory
	notifier shared.NotificationPort
	clock    clock.Clock
	opts     EngineOptions
}

func NewBookingCommands(
	uow shared.UnitOfWork,
	users shared.UserDirectory,
	notifier shared.NotificationPort,
	clk clock.Clock,
	opts EngineOptions,
) BookingCommands {
	if opts.NotifyTimeout <= 0 {
		opts.NotifyTimeout = 3 * time.Second
	}
	return &bookingEngine{
		uow:      uow,
		users:    users,
		notifier: notifier,
		clock:    clk,
		opts:     opts,
	}
}

func (e *bookingEngine) CreateBooking(ctx context.Context, in CreateBookingInput) (*booking.Booking, error) {
	ctx, span := tracer.Start(ctx, "CreateBooking", trace.WithAttributes(
		attribute.String("provider.id", in.ProviderID.String()),
	))
	defer span.End()

	mode, err := booking.ParseSessionMode(in.SessionMode)
	if err != nil {
		return nil, recordErr(span, err)
	}
	date, err := booking.NewPreferredDate(in.PreferredDate)
	if err != nil {
		return nil, recordErr(span, err)
	}
	opening, err := booking.NewOptionalMessageContent(in.OpeningMessage)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var created *booking.Booking
	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		provider, err := tx.Providers().FindProvider(ctx, in.ProviderID)
		if err != nil {
			return mapNotFound(err, booking.ErrProviderNotFound)
		}

		b, err := booking.NewBooking(e.now(), in.RequesterID, provider.Spec(), mode, date, opening)
		if err != nil {
			return err
		}

		// fast path only; the unique index decides under concurrency
		exists, err := tx.Bookings().ExistsPending(ctx, in.RequesterID, in.ProviderID)
		if err != nil {
			return err
		}
		if exists {
			return booking.ErrDuplicatePending
		}

		if err := tx.Bookings().Create(ctx, b); err != nil {
			if infra.IsKind(err, infra.KindDuplicateKey) {
				return booking.ErrDuplicatePending
			}
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, recordErr(span, err)
	}
	span.SetAttributes(attribute.String("booking.id", created.ID().String()))

	e.notifyChange(ctx, created, in.RequesterID, booking.EventCreated)
	return created, nil
}

func (e *bookingEngine) RespondToBooking(ctx context.Context, actorID, bookingID uuid.UUID, target booking.Status, message *string) (*TransitionResult, error) {
	if target != booking.StatusAccepted && target != booking.StatusDeclined {
		return nil, booking.ErrInvalidResponse
	}
	return e.transition(ctx, "RespondToBooking", actorID, bookingID, target, message)
}

func (e *bookingEngine) CancelBooking(ctx context.Context, actorID, bookingID uuid.UUID, message *string) (*TransitionResult, error) {
	return e.transition(ctx, "CancelBooking", actorID, bookingID, booking.StatusCancelled, message)
}

func (e *bookingEngine) CompleteBooking(ctx context.Context, actorID, bookingID uuid.UUID, message *string) (*TransitionResult, error) {
	return e.transition(ctx, "CompleteBooking", actorID, bookingID, booking.StatusCompleted, message)
}

func (e *bookingEngine) transition(
	ctx context.Context,
	op string,
	actorID, bookingID uuid.UUID,
	target booking.Status,
	message *string,
) (*TransitionResult, error) {
	ctx, span := tracer.Start(ctx, op, trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
		attribute.String("booking.target_status", target.String()),
	))
	defer span.End()

	note, err := booking.NewOptionalMessageContent(message)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var res TransitionResult
	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, bookingID)
		if err != nil {
			return mapNotFound(err, booking.ErrBookingNotFound)
		}
		msg, err := b.Transition(actorID, target, note, e.now())
		if err != nil {
			return err
		}
		if err := tx.Bookings().SaveTransition(ctx, b, msg); err != nil {
			return mapWriteErr(err)
		}
		// an accepted booking may be reviewed and later cancelled
		reviewed, err := tx.Reviews().ReviewedBookings(ctx, []uuid.UUID{b.ID()})
		if err != nil {
			return err
		}
		res = TransitionResult{Booking: b, ReviewLinked: reviewed[b.ID()]}
		return nil
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	event := booking.EventForStatus(target)
	e.notifyChange(ctx, res.Booking, actorID, event)
	return &res, nil
}

func (e *bookingEngine) SendMessage(ctx context.Context, actorID, bookingID uuid.UUID, content string) (*booking.Message, error) {
	ctx, span := tracer.Start(ctx, "SendMessage", trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
	))
	defer span.End()

	text, err := booking.NewMessageContent(content)
	if err != nil {
		return nil, recordErr(span, err)
	}

	var (
		sent        *booking.Message
		counterpart uuid.UUID
	)
	err = e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		// the row lock keeps sent_at ordered per thread
		b, err := tx.Bookings().FindForUpdate(ctx, bookingID)
		if err != nil {
			return mapNotFound(err, booking.ErrBookingNotFound)
		}
		m, err := b.AppendMessage(actorID, text, e.now())
		if err != nil {
			return err
		}
		if err := tx.Bookings().AppendMessage(ctx, m); err != nil {
			return err
		}
		sent = m
		counterpart = b.Counterpart(actorID)
		return nil
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	if e.opts.NotifyOnMessage {
		e.notify(ctx, shared.Notification{
			BookingID:   bookingID,
			Event:       booking.EventMessageSent,
			RecipientID: counterpart,
			ActorID:     actorID,
			Message:     "New message from " + e.displayName(ctx, actorID, ""),
			OccurredAt:  sent.SentAt(),
		})
	}
	return sent, nil
}

func (e *bookingEngine) MarkThreadRead(ctx context.Context, actorID, bookingID uuid.UUID) (int, error) {
	ctx, span := tracer.Start(ctx, "MarkThreadRead", trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
	))
	defer span.End()

	var marked int
	err := e.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		b, err := tx.Bookings().FindForUpdate(ctx, bookingID)
		if err != nil {
			return mapNotFound(err, booking.ErrBookingNotFound)
		}
		now := e.now()
		n, err := b.MarkReadBy(actorID, now)
		if err != nil {
			return err
		}
		if n == 0 {
			return nil
		}
		marked, err = tx.Bookings().MarkThreadRead(ctx, bookingID, actorID, now)
		return err
	})
	if err != nil {
		return 0, recordErr(span, err)
	}
	span.SetAttributes(attribute.Int("messages.marked", marked))
	return marked, nil
}

// Postgres keeps microseconds; truncating keeps cursors and equality stable.
func (e *bookingEngine) now() time.Time {
	return e.clock.Now().UTC().Truncate(time.Microsecond)
}

func mapNotFound(err, domainErr error) error {
	if infra.IsKind(err, infra.KindNotFound) {
		return domainErr
	}
	return err
}

func mapWriteErr(err error) error {
	switch {
	case infra.IsKind(err, infra.KindStaleVersion):
		return errs.Mark(err, ErrConcurrentUpdate)
	case infra.IsKind(err, infra.KindDuplicateKey):
		return booking.ErrDuplicatePending
	default:
		return err
	}
}

// recordErr marks the span failed for unexpected errors only.
func recordErr(span trace.Span, err error) error {
	if errs.KindOf(err) == errs.KindInternal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("error.kind", string(errs.KindOf(err))))
	}
	return err
}
