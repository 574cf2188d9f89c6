package infra

import (
	"context"
	"errors"
	"log/slog"

	"tutor-booking/internal/pkg/errs"

	"github.com/jackc/pgx/v5/pgconn"
)

type RepositoryErrorKind string

type RepositoryError struct {
	Kind RepositoryErrorKind
	msg  string
	err  error // wrapped low-level error
}

func (e RepositoryError) Error() string {
	if e.err != nil {
		return string(e.Kind) + ": " + e.msg + ": " + e.err.Error()
	}
	return string(e.Kind) + ": " + e.msg
}

func (e RepositoryError) Unwrap() error {
	return e.err
}

// Temporary marks failures where the same statement may succeed on a second try.
func (e RepositoryError) Temporary() bool {
	return e.Kind == KindUnavailable
}

// Infrastructure-specific error kinds
const (
	KindNotFound           RepositoryErrorKind = "NOT_FOUND"
	KindDBFailure          RepositoryErrorKind = "DB_FAILURE"
	KindUnavailable        RepositoryErrorKind = "UNAVAILABLE"
	KindDuplicateKey       RepositoryErrorKind = "DUPLICATE_KEY"
	KindForeignKeyViolated RepositoryErrorKind = "FOREIGN_KEY_VIOLATED"
	KindStaleVersion       RepositoryErrorKind = "STALE_VERSION"
)

const (
	pgErrCodeUniqueViolation      = "23505"
	pgErrCodeForeignKeyViolation  = "23503"
	pgErrCodeSerializationFailure = "40001"
	pgErrCodeDeadlockDetected     = "40P01"
	pgErrCodeAdminShutdown        = "57P01"
	pgErrCodeCannotConnectNow     = "57P03"
)

// WrapRepoErr wraps a storage error. The kind is taken from the first
// argument when given, otherwise derived from the postgres error.
func WrapRepoErr(msg string, err error, kind ...RepositoryErrorKind) error {
	k := classify(err)
	if len(kind) > 0 {
		k = kind[0]
	}

	if k != KindNotFound && k != KindDuplicateKey {
		slog.Error("Repository error: "+msg, slog.String("kind", string(k)), slog.Any("error", err))
	}

	if err != nil {
		err = errs.Wrap(err, msg)
	}
	return RepositoryError{Kind: k, msg: msg, err: err}
}

// NewRepoErr builds an error without an underlying driver error.
func NewRepoErr(kind RepositoryErrorKind, msg string) error {
	return RepositoryError{Kind: kind, msg: msg}
}

func IsKind(err error, kind RepositoryErrorKind) bool {
	var e RepositoryError
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

func classify(err error) RepositoryErrorKind {
	if err == nil {
		return KindDBFailure
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrCodeUniqueViolation:
			return KindDuplicateKey
		case pgErrCodeForeignKeyViolation:
			return KindForeignKeyViolated
		case pgErrCodeSerializationFailure, pgErrCodeDeadlockDetected, pgErrCodeAdminShutdown, pgErrCodeCannotConnectNow:
			return KindUnavailable
		}
		return KindDBFailure
	}
	if errors.Is(err, context.Canceled) {
		return KindDBFailure
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindUnavailable
	}
	if pgconn.SafeToRetry(err) || pgconn.Timeout(err) {
		return KindUnavailable
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return KindUnavailable
	}
	return KindDBFailure
}
