package readstore

import (
	"context"
	"strings"

	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/user"
	"tutor-booking/internal/infra"
	"tutor-booking/internal/infra/db"
	"tutor-booking/internal/pkg/pgconv"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

// DirectoryReadStore reads identities and provider profiles owned by other
// services.
type DirectoryReadStore struct {
	db db.DBTX
}

func NewDirectoryReadStore(db db.DBTX) *DirectoryReadStore {
	return &DirectoryReadStore{db: db}
}

var (
	_ shared.ProviderDirectory = (*DirectoryReadStore)(nil)
	_ shared.UserDirectory     = (*DirectoryReadStore)(nil)
)

func (s *DirectoryReadStore) FindProvider(ctx context.Context, providerID uuid.UUID) (*shared.ProviderSnapshot, error) {
	var (
		p        shared.ProviderSnapshot
		minor    int64
		currency string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, display_name, hourly_rate_minor, currency
		FROM provider_profiles
		WHERE id = $1`, providerID).Scan(&p.ID, &p.UserID, &p.DisplayName, &minor, &currency)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("provider not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get provider profile", err)
	}

	rate, err := booking.NewMoney(minor, strings.TrimSpace(currency))
	if err != nil {
		return nil, infra.WrapRepoErr("invalid provider rate", err)
	}
	p.HourlyRate = rate
	return &p, nil
}

func (s *DirectoryReadStore) FindUser(ctx context.Context, userID uuid.UUID) (*shared.UserSnapshot, error) {
	var (
		u    shared.UserSnapshot
		role string
	)
	err := s.db.QueryRow(ctx, `
		SELECT id, display_name, role
		FROM users
		WHERE id = $1`, userID).Scan(&u.ID, &u.DisplayName, &role)
	if err != nil {
		if pgconv.IsNoRows(err) {
			return nil, infra.WrapRepoErr("user not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to get user", err)
	}
	u.Role = user.Role(role)
	return &u, nil
}
