// Package apperr defines a typed error taxonomy so callers can branch on
// Kind instead of matching substrings in an error message.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates the error categories callers can branch on.
type Kind string

const (
	KindAuthRequired        Kind = "AUTH_REQUIRED"
	KindInvalidCredentials  Kind = "INVALID_CREDENTIALS"
	KindNotFound            Kind = "NOT_FOUND"
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	KindInsufficientLiq     Kind = "INSUFFICIENT_LIQUIDITY"
	KindZeroOutput          Kind = "ZERO_OUTPUT"
	KindRateLimited         Kind = "RATE_LIMITED"
	KindSafetyBlocked       Kind = "SAFETY_BLOCKED"
	KindVenueError          Kind = "VENUE_ERROR"
	KindTimeout             Kind = "TIMEOUT"
	KindConflict            Kind = "CONFLICT"
	KindForbidden           Kind = "FORBIDDEN"
	KindBadInput            Kind = "BAD_INPUT"
	KindCryptographic       Kind = "CRYPTOGRAPHIC"
	KindInternal            Kind = "INTERNAL"
)

// Error is the typed error carried through the gateway and surfaced at the
// transport edge via HTTPStatus.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds a typed error with no wrapped cause.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap builds a typed error wrapping an underlying cause.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Is reports whether err (or any error it wraps) has the given Kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// KindOf extracts the Kind of err, defaulting to KindInternal when err is
// not a typed *Error.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps a Kind to the HTTP status code the transport edge should
// return for it.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindAuthRequired, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindRateLimited:
		return http.StatusTooManyRequests
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindForbidden:
		return http.StatusForbidden
	case KindInsufficientBalance, KindInsufficientLiq, KindZeroOutput,
		KindSafetyBlocked, KindBadInput:
		return http.StatusBadRequest
	case KindVenueError:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCryptographic, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
