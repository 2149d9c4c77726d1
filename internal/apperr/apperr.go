// Package apperr defines the typed domain errors raised by the core
// workflows. The transport layer translates kinds to HTTP statuses; the
// workflows never use panics or sentinel strings for domain failures.
package apperr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
)

// Kind is the surface code of a domain error.
type Kind string

const (
	KindInvalidInput             Kind = "INVALID_INPUT"
	KindNotFound                 Kind = "NOT_FOUND"
	KindInvalidState             Kind = "INVALID_STATE"
	KindInsufficientStock        Kind = "INSUFFICIENT_STOCK"
	KindInsufficientAvailability Kind = "INSUFFICIENT_AVAILABILITY"
	KindConflict                 Kind = "CONFLICT"
	KindRetryable                Kind = "RETRYABLE"
	KindUnauthorized             Kind = "UNAUTHORIZED"
	KindForbidden                Kind = "FORBIDDEN"
	KindInternal                 Kind = "INTERNAL"
)

// Error is a typed domain error. VariantID and Shortfall are populated for
// stock and availability failures so callers learn which line failed.
type Error struct {
	Kind      Kind
	Message   string
	VariantID int64
	Shortfall decimal.Decimal
	cause     error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New creates a typed error with a formatted message.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind to an underlying error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// InvalidInput reports a payload shape or constraint failure.
func InvalidInput(format string, args ...interface{}) *Error {
	return New(KindInvalidInput, format, args...)
}

// NotFound reports a missing referenced entity.
func NotFound(format string, args ...interface{}) *Error {
	return New(KindNotFound, format, args...)
}

// InvalidState reports a state-machine edge that is not permitted.
func InvalidState(format string, args ...interface{}) *Error {
	return New(KindInvalidState, format, args...)
}

// Conflict reports a uniqueness collision.
func Conflict(format string, args ...interface{}) *Error {
	return New(KindConflict, format, args...)
}

// InsufficientStock reports a debit that would take a balance negative.
func InsufficientStock(variantID int64, shortfall decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientStock,
		Message:   fmt.Sprintf("insufficient stock for variant %d, short by %s", variantID, shortfall),
		VariantID: variantID,
		Shortfall: shortfall,
	}
}

// InsufficientAvailability reports a reservation exceeding available stock.
func InsufficientAvailability(variantID int64, shortfall decimal.Decimal) *Error {
	return &Error{
		Kind:      KindInsufficientAvailability,
		Message:   fmt.Sprintf("insufficient availability for variant %d, short by %s", variantID, shortfall),
		VariantID: variantID,
		Shortfall: shortfall,
	}
}

// Retryable reports a deadlock or serialization failure; callers may retry.
func Retryable(cause error) *Error {
	return &Error{Kind: KindRetryable, Message: "transaction conflict", cause: cause}
}

// Internal wraps an unexpected infrastructure failure.
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}

// KindOf extracts the kind of err, or KindInternal for untyped errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// AsError returns the typed error inside err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// HTTPStatus maps an error kind to the HTTP status the transport layer uses.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindRetryable:
		return http.StatusConflict
	case KindInvalidState, KindInsufficientStock, KindInsufficientAvailability:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
