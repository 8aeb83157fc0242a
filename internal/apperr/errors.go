// Package apperr defines the error kinds surfaced by placement and listing
// operations and how they map onto HTTP responses.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers.
type Kind string

const (
	KindInvalidArgument Kind = "invalid_argument"
	KindNotFound        Kind = "not_found"
	KindConflict        Kind = "conflict"
	KindStorage         Kind = "storage_error"
	KindUnauthorized    Kind = "unauthorized"
	KindForbidden       Kind = "forbidden"
)

// Stable codes the UI can switch on.
const (
	CodeInvalidArgument   = "invalid_argument"
	CodeEquipmentNotFound = "equipment_not_found"
	CodeSlotNotFound      = "slot_not_found"
	CodeSlotOccupied      = "slot_occupied"
	CodeStorage           = "storage_error"
)

// Sentinel values for errors.Is checks.
var (
	ErrInvalidArgument = &Error{Kind: KindInvalidArgument}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrStorage         = &Error{Kind: KindStorage}
)

// Error carries a kind, a stable code, a caller-safe message and the
// underlying cause. The cause is for server-side logs only.
type Error struct {
	Kind      Kind
	Code      string
	Message   string
	Err       error
	Retryable bool
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, ErrConflict) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Code == "" || t.Code == e.Code)
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Code: CodeInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func NotFound(code, message string) *Error {
	return &Error{Kind: KindNotFound, Code: code, Message: message}
}

func Conflict(code, message string) *Error {
	return &Error{Kind: KindConflict, Code: code, Message: message}
}

// Storage wraps a store failure. The message shown to callers is generic.
func Storage(err error, retryable bool) *Error {
	return &Error{
		Kind:      KindStorage,
		Code:      CodeStorage,
		Message:   "storage unavailable, please retry",
		Err:       err,
		Retryable: retryable,
	}
}

// As extracts an *Error from err. Errors that are not *Error are reported
// as storage errors so they never leak verbatim.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Storage(err, false)
}

// KindOf returns the kind of err, or "" for nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return As(err).Kind
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
