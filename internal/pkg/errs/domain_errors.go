package errs

import "errors"

// Error kinds surfaced to callers. Every expected failure of the booking
// engine unwraps to exactly one of these.
var (
	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrConflict          = errors.New("conflict")
	ErrValidation        = errors.New("validation error")
)

// Operation errors
var (
	ErrDatabaseOperationFailed = errors.New("database operation failed")
)

type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindForbidden         Kind = "forbidden"
	KindInvalidTransition Kind = "invalid_transition"
	KindConflict          Kind = "conflict"
	KindValidation        Kind = "validation"
	KindInternal          Kind = "internal"
)

type kindError struct {
	msg  string
	kind error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

// NewKind returns a sentinel error that matches kind under errors.Is.
func NewKind(kind error, msg string) error {
	return &kindError{msg: msg, kind: kind}
}

func KindOf(err error) Kind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	case errors.Is(err, ErrInvalidTransition):
		return KindInvalidTransition
	case errors.Is(err, ErrConflict):
		return KindConflict
	case errors.Is(err, ErrValidation):
		return KindValidation
	default:
		return KindInternal
	}
}
