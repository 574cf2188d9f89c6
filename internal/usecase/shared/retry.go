package shared

import (
	"context"
	"errors"
	"log/slog"
)

type temporary interface {
	Temporary() bool
}

// IsTransient reports whether err is a storage failure worth one more try,
// such as a dropped connection or a timeout.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var t temporary
	return errors.As(err, &t) && t.Temporary()
}

// ReadWithRetry runs an idempotent read and repeats it once on a transient
// failure. Mutations must not go through here.
func ReadWithRetry[T any](ctx context.Context, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	result, err := fn(ctx)
	if err == nil || !IsTransient(err) || ctx.Err() != nil {
		return result, err
	}
	slog.WarnContext(ctx, "retrying read after transient failure", "op", op, "error", err.Error())
	return fn(ctx)
}
