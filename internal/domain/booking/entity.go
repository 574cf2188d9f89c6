package booking

import (
	"time"

	"tutor-booking/internal/pkg/errs"

	"github.com/google/uuid"
)

var (
	ErrBookingNotFound  = errs.NewKind(errs.ErrNotFound, "booking not found")
	ErrProviderNotFound = errs.NewKind(errs.ErrNotFound, "provider not found")

	ErrNotParticipant   = errs.NewKind(errs.ErrForbidden, "actor is not a participant of this booking")
	ErrRoleNotPermitted = errs.NewKind(errs.ErrForbidden, "actor's role in this booking may not perform this change")

	ErrInvalidTransition = errs.NewKind(errs.ErrInvalidTransition, "status change is not allowed from the current status")

	ErrDuplicatePending = errs.NewKind(errs.ErrConflict, "a pending booking with this provider already exists")

	ErrInvalidStatus        = errs.NewKind(errs.ErrValidation, "invalid booking status")
	ErrInvalidResponse      = errs.NewKind(errs.ErrValidation, "response must be accepted or declined")
	ErrInvalidSessionMode   = errs.NewKind(errs.ErrValidation, "session mode must be in_person, remote or either")
	ErrNegativePrice        = errs.NewKind(errs.ErrValidation, "price cannot be negative")
	ErrInvalidCurrency      = errs.NewKind(errs.ErrValidation, "currency must be a three letter code")
	ErrCurrencyMismatch     = errs.NewKind(errs.ErrValidation, "cannot combine amounts in different currencies")
	ErrPreferredDateTooLong = errs.NewKind(errs.ErrValidation, "preferred date is too long")
	ErrEmptyMessage         = errs.NewKind(errs.ErrValidation, "message content cannot be empty")
	ErrMessageTooLong       = errs.NewKind(errs.ErrValidation, "message content exceeds maximum length")
	ErrSelfBooking          = errs.NewKind(errs.ErrValidation, "providers cannot book themselves")
	ErrMissingIdentity      = errs.NewKind(errs.ErrValidation, "requester and provider are required")
)

// ProviderSpec is what the provider directory knows at creation time.
type ProviderSpec struct {
	ID         uuid.UUID
	UserID     uuid.UUID
	HourlyRate Money
}

type Booking struct {
	id             uuid.UUID
	requesterID    uuid.UUID
	providerID     uuid.UUID
	providerUserID uuid.UUID
	mode           SessionMode
	preferredDate  PreferredDate
	price          Money
	status         Status
	version        int
	createdAt      time.Time
	updatedAt      time.Time
	messages       []*Message
}

var guard = NewTransitionGuard()

// NewBooking opens a pending booking. The provider's current hourly rate is
// frozen into the booking and never recomputed.
func NewBooking(
	now time.Time,
	requesterID uuid.UUID,
	provider ProviderSpec,
	mode SessionMode,
	preferredDate PreferredDate,
	opening *MessageContent,
) (*Booking, error) {
	if requesterID == uuid.Nil || provider.ID == uuid.Nil || provider.UserID == uuid.Nil {
		return nil, ErrMissingIdentity
	}
	if provider.UserID == requesterID {
		return nil, ErrSelfBooking
	}
	if !mode.IsValid() {
		return nil, ErrInvalidSessionMode
	}
	if provider.HourlyRate.Currency() == "" {
		return nil, ErrInvalidCurrency
	}

	b := &Booking{
		id:             uuid.New(),
		requesterID:    requesterID,
		providerID:     provider.ID,
		providerUserID: provider.UserID,
		mode:           mode,
		preferredDate:  preferredDate,
		price:          provider.HourlyRate,
		status:         StatusPending,
		version:        1,
		createdAt:      now,
		updatedAt:      now,
	}
	if opening != nil {
		b.append(requesterID, *opening, now)
	}
	return b, nil
}

func ReconstructBooking(
	id, requesterID, providerID, providerUserID uuid.UUID,
	mode SessionMode,
	preferredDate PreferredDate,
	price Money,
	status Status,
	version int,
	createdAt, updatedAt time.Time,
	messages []*Message,
) *Booking {
	return &Booking{
		id:             id,
		requesterID:    requesterID,
		providerID:     providerID,
		providerUserID: providerUserID,
		mode:           mode,
		preferredDate:  preferredDate,
		price:          price,
		status:         status,
		version:        version,
		createdAt:      createdAt,
		updatedAt:      updatedAt,
		messages:       messages,
	}
}

func (b *Booking) ActorFor(id uuid.UUID) Actor {
	switch id {
	case uuid.Nil:
		return Actor{ID: id}
	case b.requesterID:
		return Actor{ID: id, Role: RoleRequester}
	case b.providerUserID:
		return Actor{ID: id, Role: RoleProvider}
	default:
		return Actor{ID: id}
	}
}

func (b *Booking) IsParticipant(id uuid.UUID) bool {
	return b.ActorFor(id).IsParticipant()
}

// Counterpart returns the other participant, or uuid.Nil for outsiders.
func (b *Booking) Counterpart(id uuid.UUID) uuid.UUID {
	switch b.ActorFor(id).Role {
	case RoleRequester:
		return b.providerUserID
	case RoleProvider:
		return b.requesterID
	default:
		return uuid.Nil
	}
}

// Transition applies a guarded status change and appends the optional note to
// the thread, attributed to the actor. Nothing changes on error.
func (b *Booking) Transition(actorID uuid.UUID, target Status, note *MessageContent, now time.Time) (*Message, error) {
	next, err := guard.Decide(b.status, b.ActorFor(actorID), target)
	if err != nil {
		return nil, err
	}
	b.status = next
	b.updatedAt = now
	b.version++

	if note == nil {
		return nil, nil
	}
	return b.append(actorID, *note, now), nil
}

// AppendMessage is allowed in every status, terminal ones included.
func (b *Booking) AppendMessage(senderID uuid.UUID, content MessageContent, now time.Time) (*Message, error) {
	if !b.IsParticipant(senderID) {
		return nil, ErrNotParticipant
	}
	return b.append(senderID, content, now), nil
}

// MarkReadBy flags every unread message the reader did not author.
func (b *Booking) MarkReadBy(readerID uuid.UUID, now time.Time) (int, error) {
	if !b.IsParticipant(readerID) {
		return 0, ErrNotParticipant
	}
	marked := 0
	for _, m := range b.messages {
		if m.senderID == readerID || m.read {
			continue
		}
		m.markRead(now)
		marked++
	}
	return marked, nil
}

func (b *Booking) UnreadFor(viewerID uuid.UUID) int {
	n := 0
	for _, m := range b.messages {
		if m.senderID != viewerID && !m.read {
			n++
		}
	}
	return n
}

func (b *Booking) append(senderID uuid.UUID, content MessageContent, now time.Time) *Message {
	sentAt := now
	if n := len(b.messages); n > 0 && b.messages[n-1].sentAt.After(sentAt) {
		sentAt = b.messages[n-1].sentAt
	}
	m := &Message{
		id:        uuid.New(),
		bookingID: b.id,
		senderID:  senderID,
		content:   content,
		sentAt:    sentAt,
	}
	b.messages = append(b.messages, m)
	return m
}

func (b *Booking) ID() uuid.UUID                { return b.id }
func (b *Booking) RequesterID() uuid.UUID       { return b.requesterID }
func (b *Booking) ProviderID() uuid.UUID        { return b.providerID }
func (b *Booking) ProviderUserID() uuid.UUID    { return b.providerUserID }
func (b *Booking) Mode() SessionMode            { return b.mode }
func (b *Booking) PreferredDate() PreferredDate { return b.preferredDate }
func (b *Booking) Price() Money                 { return b.price }
func (b *Booking) Status() Status               { return b.status }
func (b *Booking) Version() int                 { return b.version }
func (b *Booking) CreatedAt() time.Time         { return b.createdAt }
func (b *Booking) UpdatedAt() time.Time         { return b.updatedAt }

// Messages returns the thread in append order. The slice is a copy; the
// messages are shared.
func (b *Booking) Messages() []*Message {
	out := make([]*Message, len(b.messages))
	copy(out, b.messages)
	return out
}
