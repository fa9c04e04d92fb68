package cards

import "errors"

// Sentinel errors for the cards service layer. Repositories return them
// (possibly wrapped) so callers can match with errors.Is.
var (
	ErrValidation   = errors.New("invalid card submission")
	ErrNotFound     = errors.New("card not found")
	ErrInvalidState = errors.New("operation not allowed in current card state")
	ErrSelection    = errors.New("edit requires exactly one selected card")
)

// ErrorKind names an error class in API responses and batch reports.
type ErrorKind string

const (
	KindValidation   ErrorKind = "ValidationError"
	KindNotFound     ErrorKind = "NotFound"
	KindInvalidState ErrorKind = "InvalidState"
	KindSelection    ErrorKind = "SelectionError"
	KindInternal     ErrorKind = "Internal"
)

// KindOf classifies err. Anything that is not one of the sentinel errors
// is KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, ErrSelection):
		return KindSelection
	default:
		return KindInternal
	}
}
