package readstore

import (
	"context"

	"tutor-booking/internal/infra"
	"tutor-booking/internal/infra/db"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReviewReadStore struct {
	db db.DBTX
}

func NewReviewReadStore(db db.DBTX) *ReviewReadStore {
	return &ReviewReadStore{db: db}
}

var _ shared.ReviewLookup = (*ReviewReadStore)(nil)

func (r *ReviewReadStore) ReviewedBookings(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]bool, error) {
	out := make(map[uuid.UUID]bool, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return out, nil
	}

	rows, err := r.db.Query(ctx, `SELECT booking_id FROM reviews WHERE booking_id = ANY($1)`, bookingIDs)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to look up reviews", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, infra.WrapRepoErr("failed to scan review", err)
		}
		out[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate reviews", err)
	}
	return out, nil
}
