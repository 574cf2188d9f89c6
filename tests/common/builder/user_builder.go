//go:build unit || e2e

package builder

import (
	"tutor-booking/internal/domain/booking"
	"tutor-booking/internal/domain/user"
	"tutor-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type UserBuilder struct {
	ID          uuid.UUID
	DisplayName string
	Role        user.Role
}

func NewUserBuilder() *UserBuilder {
	return &UserBuilder{
		ID:          uuid.New(),
		DisplayName: "Alice",
		Role:        user.RoleStudent,
	}
}

func (u *UserBuilder) With(mutate func(*UserBuilder)) *UserBuilder {
	mutate(u)
	return u
}

func (u *UserBuilder) AsTutor(name string) *UserBuilder {
	u.Role = user.RoleTutor
	u.DisplayName = name
	return u
}

func (u *UserBuilder) BuildSnapshot() shared.UserSnapshot {
	return shared.UserSnapshot{ID: u.ID, DisplayName: u.DisplayName, Role: u.Role}
}

// ProviderBuilder describes a tutor profile together with the user that owns it.
type ProviderBuilder struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	DisplayName string
	RateMinor   int64
	Currency    string
}

func NewProviderBuilder() *ProviderBuilder {
	return &ProviderBuilder{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		DisplayName: "Bob",
		RateMinor:   4000,
		Currency:    "GBP",
	}
}

func (p *ProviderBuilder) With(mutate func(*ProviderBuilder)) *ProviderBuilder {
	mutate(p)
	return p
}

func (p *ProviderBuilder) BuildSnapshot() shared.ProviderSnapshot {
	rate, err := booking.NewMoney(p.RateMinor, p.Currency)
	if err != nil {
		panic(err)
	}
	return shared.ProviderSnapshot{ID: p.ID, UserID: p.UserID, DisplayName: p.DisplayName, HourlyRate: rate}
}

func (p *ProviderBuilder) BuildUser() shared.UserSnapshot {
	return shared.UserSnapshot{ID: p.UserID, DisplayName: p.DisplayName, Role: user.RoleTutor}
}
