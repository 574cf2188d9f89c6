//go:build unit || e2e

package memstore

import (
	"context"
	"slices"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type tx struct{ st *state }

func (t *tx) Bookings() shared.BookingStore       { return &bookingStore{st: t.st} }
func (t *tx) Reviews() shared.ReviewLookup        { return reviewLookup{st: t.st} }
func (t *tx) Providers() shared.ProviderDirectory { return providerDirectory{st: t.st} }

type readTx struct{ st *state }

func (t *readTx) Bookings() shared.BookingReader      { return &bookingStore{st: t.st} }
func (t *readTx) Reviews() shared.ReviewLookup        { return reviewLookup{st: t.st} }
func (t *readTx) Providers() shared.ProviderDirectory { return providerDirectory{st: t.st} }

type providerDirectory struct{ st *state }

func (d providerDirectory) FindProvider(_ context.Context, providerID uuid.UUID) (*shared.ProviderSnapshot, error) {
	p, ok := d.st.providers[providerID]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "provider not found")
	}
	return &p, nil
}

type reviewLookup struct{ st *state }

func (r reviewLookup) ReviewedBookings(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if r.st.reviews[id] {
			out[id] = true
		}
	}
	return out, nil
}

type bookingStore struct{ st *state }

func (s *bookingStore) FindByID(_ context.Context, id uuid.UUID) (*booking.Booking, error) {
	row, ok := s.st.bookings[id]
	if !ok {
		return nil, infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	return s.toDomain(row, true), nil
}

func (s *bookingStore) FindForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return s.FindByID(ctx, id)
}

func (s *bookingStore) ListByParticipant(_ context.Context, userID uuid.UUID, filter shared.ListFilter) ([]*booking.Booking, error) {
	var rows []bookingRow
	for _, row := range s.st.bookings {
		switch filter.Role {
		case booking.RoleRequester:
			if row.requesterID != userID {
				continue
			}
		case booking.RoleProvider:
			if row.providerUserID != userID {
				continue
			}
		default:
			if row.requesterID != userID && row.providerUserID != userID {
				continue
			}
		}
		if filter.Status != nil && row.status != *filter.Status {
			continue
		}
		if filter.After != nil && !filter.After.Before(row.createdAt, row.id) {
			continue
		}
		rows = append(rows, row)
	}
	sortNewestFirst(rows)
	if filter.Limit > 0 && len(rows) > filter.Limit {
		rows = rows[:filter.Limit]
	}

	out := make([]*booking.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toDomain(row, true))
	}
	return out, nil
}

func (s *bookingStore) ListByProvider(_ context.Context, providerID uuid.UUID) ([]*booking.Booking, error) {
	var rows []bookingRow
	for _, row := range s.st.bookings {
		if row.providerID == providerID {
			rows = append(rows, row)
		}
	}
	sortNewestFirst(rows)
	out := make([]*booking.Booking, 0, len(rows))
	for _, row := range rows {
		out = append(out, s.toDomain(row, false))
	}
	return out, nil
}

func (s *bookingStore) ExistsPending(_ context.Context, requesterID, providerID uuid.UUID) (bool, error) {
	for _, row := range s.st.bookings {
		if row.requesterID == requesterID && row.providerID == providerID && row.status == booking.StatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (s *bookingStore) Create(ctx context.Context, b *booking.Booking) error {
	// mirrors the partial unique index on pending bookings
	if exists, _ := s.ExistsPending(ctx, b.RequesterID(), b.ProviderID()); exists {
		return infra.NewRepoErr(infra.KindDuplicateKey, "pending booking already exists")
	}
	s.st.bookings[b.ID()] = rowFromDomain(b)
	for _, m := range b.Messages() {
		s.st.messages[b.ID()] = append(s.st.messages[b.ID()], messageFromDomain(m))
	}
	return nil
}

func (s *bookingStore) SaveTransition(ctx context.Context, b *booking.Booking, note *booking.Message) error {
	row, ok := s.st.bookings[b.ID()]
	if !ok {
		return infra.NewRepoErr(infra.KindNotFound, "booking not found")
	}
	if row.version != b.Version()-1 {
		return infra.NewRepoErr(infra.KindStaleVersion, "booking was modified concurrently")
	}
	if b.Status() == booking.StatusPending && row.status != booking.StatusPending {
		if exists, _ := s.ExistsPending(ctx, b.RequesterID(), b.ProviderID()); exists {
			return infra.NewRepoErr(infra.KindDuplicateKey, "pending booking already exists")
		}
	}
	row.status = b.Status()
	row.version = b.Version()
	row.updatedAt = b.UpdatedAt()
	s.st.bookings[b.ID()] = row
	if note != nil {
		return s.AppendMessage(ctx, note)
	}
	return nil
}

func (s *bookingStore) AppendMessage(_ context.Context, m *booking.Message) error {
	if _, ok := s.st.bookings[m.BookingID()]; !ok {
		return infra.NewRepoErr(infra.KindForeignKeyViolated, "booking does not exist")
	}
	s.st.messages[m.BookingID()] = append(s.st.messages[m.BookingID()], messageFromDomain(m))
	return nil
}

func (s *bookingStore) MarkThreadRead(_ context.Context, bookingID, readerID uuid.UUID, at time.Time) (int, error) {
	msgs := s.st.messages[bookingID]
	n := 0
	for i := range msgs {
		if msgs[i].senderID == readerID || msgs[i].read {
			continue
		}
		t := at
		msgs[i].read = true
		msgs[i].readAt = &t
		n++
	}
	return n, nil
}

func (s *bookingStore) toDomain(row bookingRow, withThread bool) *booking.Booking {
	var msgs []*booking.Message
	if withThread {
		rows := slices.Clone(s.st.messages[row.id])
		slices.SortStableFunc(rows, func(a, b messageRow) int { return a.sentAt.Compare(b.sentAt) })
		for _, m := range rows {
			msgs = append(msgs, booking.ReconstructMessage(m.id, m.bookingID, m.senderID, m.content, m.sentAt, m.read, m.readAt))
		}
	}
	date, _ := booking.NewPreferredDate(row.preferredDate)
	return booking.ReconstructBooking(
		row.id, row.requesterID, row.providerID, row.providerUserID,
		row.mode, date, row.price, row.status, row.version,
		row.createdAt, row.updatedAt, msgs,
	)
}

func rowFromDomain(b *booking.Booking) bookingRow {
	return bookingRow{
		id:             b.ID(),
		requesterID:    b.RequesterID(),
		providerID:     b.ProviderID(),
		providerUserID: b.ProviderUserID(),
		mode:           b.Mode(),
		preferredDate:  b.PreferredDate().Ptr(),
		price:          b.Price(),
		status:         b.Status(),
		version:        b.Version(),
		createdAt:      b.CreatedAt(),
		updatedAt:      b.UpdatedAt(),
	}
}

func messageFromDomain(m *booking.Message) messageRow {
	return messageRow{
		id:        m.ID(),
		bookingID: m.BookingID(),
		senderID:  m.SenderID(),
		content:   m.Content().String(),
		sentAt:    m.SentAt(),
		read:      m.IsRead(),
		readAt:    m.ReadAt(),
	}
}

func sortNewestFirst(rows []bookingRow) {
	slices.SortFunc(rows, func(a, b bookingRow) int {
		if c := b.createdAt.Compare(a.createdAt); c != 0 {
			return c
		}
		switch {
		case a.id.String() > b.id.String():
			return -1
		case a.id.String() < b.id.String():
			return 1
		}
		return 0
	})
}
