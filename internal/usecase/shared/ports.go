package shared

import (
	"context"

	"github.com/google/uuid"
)

//go:generate mockgen -source=ports.go -destination=../../../tests/mock/shared/ports_mock.go -package=sharedmock

type UserDirectory interface {
	FindUser(ctx context.Context, userID uuid.UUID) (*UserSnapshot, error)
}

// NotificationPort delivers events to the counterpart. Callers treat every
// error as non-fatal.
type NotificationPort interface {
	Notify(ctx context.Context, n Notification) error
}
