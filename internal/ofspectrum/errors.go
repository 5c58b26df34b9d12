package ofspectrum

import (
	"errors"
	"fmt"
)

// Kind classifies an API error so callers can branch on error class
// instead of matching message substrings.
type Kind string

const (
	KindAuth       Kind = "auth"
	KindForbidden  Kind = "forbidden"
	KindNotFound   Kind = "not_found"
	KindValidation Kind = "validation"
	KindAPI        Kind = "api"
	KindNetwork    Kind = "network"
)

// Error is a structured SDK error.
type Error struct {
	Kind       Kind
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *Error) Error() string {
	if e.HTTPStatus > 0 {
		return fmt.Sprintf("%s (HTTP %d)", e.Message, e.HTTPStatus)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// IsAuth reports whether err is an authentication error.
func IsAuth(err error) bool {
	return IsKind(err, KindAuth)
}

// IsValidation reports whether err is an input-validation error.
func IsValidation(err error) bool {
	return IsKind(err, KindValidation)
}
