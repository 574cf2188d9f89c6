package repository

import (
	"context"
	"time"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/infra/db"
	"tutor-booking/internal/pkg/pgconv"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const bookingColumns = `id, requester_id, provider_id, provider_user_id, session_mode, preferred_date,
	price_minor, currency, status, version, created_at, updated_at`

type BookingRepository struct {
	db db.DBTX
}

func NewBookingRepository(db db.DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

var _ shared.BookingStore = (*BookingRepository)(nil)

func (r *BookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) FindForUpdate(ctx context.Context, id uuid.UUID) (*booking.Booking, error) {
	return r.findOne(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) findOne(ctx context.Context, query string, id uuid.UUID) (*booking.Booking, error) {
	row, err := scanBooking(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("booking not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get booking by id", err)
	}

	threads, err := r.loadThreads(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	return row.toDomain(threads[id]), nil
}

func (r *BookingRepository) ListByParticipant(ctx context.Context, userID uuid.UUID, filter shared.ListFilter) ([]*booking.Booking, error) {
	var status pgtype.Text
	if filter.Status != nil {
		status = pgtype.Text{String: filter.Status.String(), Valid: true}
	}
	var afterAt pgtype.Timestamptz
	var afterID pgtype.UUID
	if filter.After != nil {
		afterAt = pgconv.TimeToPgtype(filter.After.CreatedAt)
		afterID = pgtype.UUID{Bytes: filter.After.ID, Valid: true}
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE (
		        ($2 = '' AND (requester_id = $1 OR provider_user_id = $1))
		     OR ($2 = 'requester' AND requester_id = $1)
		     OR ($2 = 'provider' AND provider_user_id = $1)
		      )
		  AND ($3::text IS NULL OR status = $3)
		  AND ($4::timestamptz IS NULL OR (created_at, id) < ($4, $5::uuid))
		ORDER BY created_at DESC, id DESC
		LIMIT $6`,
		userID, string(filter.Role), status, afterAt, afterID, limit,
	)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings by participant", err)
	}
	list, err := collectBookings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan bookings", err)
	}

	ids := make([]uuid.UUID, len(list))
	for i, row := range list {
		ids[i] = row.ID
	}
	threads, err := r.loadThreads(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]*booking.Booking, len(list))
	for i, row := range list {
		out[i] = row.toDomain(threads[row.ID])
	}
	return out, nil
}

func (r *BookingRepository) ListByProvider(ctx context.Context, providerID uuid.UUID) ([]*booking.Booking, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE provider_id = $1
		ORDER BY created_at DESC, id DESC`, providerID)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to list bookings by provider", err)
	}
	list, err := collectBookings(rows)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to scan bookings", err)
	}
	out := make([]*booking.Booking, len(list))
	for i, row := range list {
		out[i] = row.toDomain(nil)
	}
	return out, nil
}

func (r *BookingRepository) ExistsPending(ctx context.Context, requesterID, providerID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE requester_id = $1 AND provider_id = $2 AND status = 'pending'
		)`, requesterID, providerID).Scan(&exists)
	if err != nil {
		return false, infra.WrapRepoErr("failed to check pending booking", err)
	}
	return exists, nil
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		b.ID(), b.RequesterID(), b.ProviderID(), b.ProviderUserID(),
		b.Mode().String(), pgconv.StringPtrToPgtype(b.PreferredDate().Ptr()),
		b.Price().Minor(), b.Price().Currency(), b.Status().String(), b.Version(),
		pgconv.TimeToPgtype(b.CreatedAt()), pgconv.TimeToPgtype(b.UpdatedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to create booking", err)
	}

	for _, m := range b.Messages() {
		if err := r.AppendMessage(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

func (r *BookingRepository) SaveTransition(ctx context.Context, b *booking.Booking, note *booking.Message) error {
	tag, err := r.db.Exec(ctx, `
		UPDATE bookings
		SET status = $2, version = $3, updated_at = $4
		WHERE id = $1 AND version = $3 - 1`,
		b.ID(), b.Status().String(), b.Version(), pgconv.TimeToPgtype(b.UpdatedAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to update booking status", err)
	}
	if tag.RowsAffected() == 0 {
		return infra.NewRepoErr(infra.KindStaleVersion, "booking version changed since it was read")
	}

	if note != nil {
		return r.AppendMessage(ctx, note)
	}
	return nil
}

func (r *BookingRepository) AppendMessage(ctx context.Context, m *booking.Message) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO booking_messages (id, booking_id, sender_id, content, sent_at, is_read, read_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID(), m.BookingID(), m.SenderID(), m.Content().String(),
		pgconv.TimeToPgtype(m.SentAt()), m.IsRead(), pgconv.TimePtrToPgtype(m.ReadAt()),
	)
	if err != nil {
		return infra.WrapRepoErr("failed to append message", err)
	}
	return nil
}

func (r *BookingRepository) MarkThreadRead(ctx context.Context, bookingID, readerID uuid.UUID, at time.Time) (int, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE booking_messages
		SET is_read = true, read_at = $3
		WHERE booking_id = $1 AND sender_id <> $2 AND NOT is_read`,
		bookingID, readerID, pgconv.TimeToPgtype(at),
	)
	if err != nil {
		return 0, infra.WrapRepoErr("failed to mark thread read", err)
	}
	return int(tag.RowsAffected()), nil
}

// loadThreads returns messages per booking ordered by sent_at, then insertion.
func (r *BookingRepository) loadThreads(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]*booking.Message, error) {
	out := make(map[uuid.UUID][]*booking.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `
		SELECT id, booking_id, sender_id, content, sent_at, is_read, read_at
		FROM booking_messages
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, sent_at, seq`, ids)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to load message threads", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id, bookingID, senderID uuid.UUID
			content                 string
			sentAt, readAt          pgtype.Timestamptz
			read                    bool
		)
		if err := rows.Scan(&id, &bookingID, &senderID, &content, &sentAt, &read, &readAt); err != nil {
			return nil, infra.WrapRepoErr("failed to scan message", err)
		}
		out[bookingID] = append(out[bookingID], booking.ReconstructMessage(
			id, bookingID, senderID, content,
			pgconv.TimeFromPgtype(sentAt), read, pgconv.TimePtrFromPgtype(readAt),
		))
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate messages", err)
	}
	return out, nil
}

type bookingRow struct {
	ID             uuid.UUID
	RequesterID    uuid.UUID
	ProviderID     uuid.UUID
	ProviderUserID uuid.UUID
	SessionMode    string
	PreferredDate  pgtype.Text
	PriceMinor     int64
	Currency       string
	Status         string
	Version        int
	CreatedAt      pgtype.Timestamptz
	UpdatedAt      pgtype.Timestamptz
}

func scanBooking(row pgx.Row) (bookingRow, error) {
	var b bookingRow
	err := row.Scan(
		&b.ID, &b.RequesterID, &b.ProviderID, &b.ProviderUserID, &b.SessionMode, &b.PreferredDate,
		&b.PriceMinor, &b.Currency, &b.Status, &b.Version, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

func collectBookings(rows pgx.Rows) ([]bookingRow, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (bookingRow, error) {
		return scanBooking(row)
	})
}

// toDomain trusts stored values; the schema CHECK constraints mirror the
// domain validation.
func (b bookingRow) toDomain(messages []*booking.Message) *booking.Booking {
	date, _ := booking.NewPreferredDate(pgconv.StringPtrFromPgtype(b.PreferredDate))
	price, _ := booking.NewMoney(b.PriceMinor, b.Currency)
	return booking.ReconstructBooking(
		b.ID, b.RequesterID, b.ProviderID, b.ProviderUserID,
		booking.SessionMode(b.SessionMode), date, price, booking.Status(b.Status), b.Version,
		pgconv.TimeFromPgtype(b.CreatedAt), pgconv.TimeFromPgtype(b.UpdatedAt),
		messages,
	)
}
