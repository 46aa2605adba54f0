// Package errdefs defines the error taxonomy shared by the backoffice
// service and its clients. Every failure that crosses a process boundary is
// normalized into an *Error carrying a Kind, a numeric code and a
// human-readable message, so callers can branch on the category instead of
// string-matching transport errors.
package errdefs

import (
	"errors"
	"fmt"
	"time"
)

// Kind is the coarse failure category. The string values are part of the
// wire and log format and must not change.
type Kind string

const (
	// KindBusiness marks domain rule violations: validation failures,
	// conflicts, missing records. Safe to show to the operator verbatim.
	KindBusiness Kind = "business_error"

	// KindNetwork marks transport-level failures where no HTTP response was
	// received at all.
	KindNetwork Kind = "network_error"

	// KindAuth marks authentication and authorization failures (401/403).
	KindAuth Kind = "auth_error"

	// KindSystem marks server-side faults (5xx) the operator cannot fix by
	// changing the request.
	KindSystem Kind = "system_error"
)

// Valid reports whether k is one of the defined kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindBusiness, KindNetwork, KindAuth, KindSystem:
		return true
	}
	return false
}

// Error is the normalized failure passed between layers. Code carries the
// HTTP status or the envelope business code, Data any structured payload the
// server attached, and Cause the underlying error if one exists.
type Error struct {
	Kind      Kind
	Code      int
	Message   string
	Data      any
	Cause     error
	Timestamp time.Time
}

// New builds an *Error of the given kind. The timestamp is set to now.
func New(kind Kind, code int, message string) *Error {
	return &Error{
		Kind:      kind,
		Code:      code,
		Message:   message,
		Timestamp: time.Now().UTC(),
	}
}

// Newf is New with a formatted message.
func Newf(kind Kind, code int, format string, args ...any) *Error {
	return New(kind, code, fmt.Sprintf(format, args...))
}

// Business builds a business error with code 400 unless overridden later.
func Business(message string) *Error { return New(KindBusiness, 400, message) }

// Businessf is Business with a formatted message.
func Businessf(format string, args ...any) *Error {
	return Business(fmt.Sprintf(format, args...))
}

// NotFound builds a business error with code 404.
func NotFound(message string) *Error { return New(KindBusiness, 404, message) }

// Conflict builds a business error with code 409.
func Conflict(message string) *Error { return New(KindBusiness, 409, message) }

// Auth builds an auth error with code 401.
func Auth(message string) *Error { return New(KindAuth, 401, message) }

// Forbidden builds an auth error with code 403.
func Forbidden(message string) *Error { return New(KindAuth, 403, message) }

// Network builds a network error wrapping the transport cause.
func Network(message string, cause error) *Error {
	e := New(KindNetwork, 0, message)
	e.Cause = cause
	return e
}

// System builds a system error with code 500.
func System(message string) *Error { return New(KindSystem, 500, message) }

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Code != 0 {
		return fmt.Sprintf("%s [%d]: %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// WithCode returns a copy of e with the code replaced.
func (e *Error) WithCode(code int) *Error {
	out := e.clone()
	out.Code = code
	return out
}

// WithMessage returns a copy of e with the message replaced.
func (e *Error) WithMessage(message string) *Error {
	out := e.clone()
	out.Message = message
	return out
}

// WithData returns a copy of e carrying the structured payload.
func (e *Error) WithData(data any) *Error {
	out := e.clone()
	out.Data = data
	return out
}

// WithCause returns a copy of e wrapping the underlying error.
func (e *Error) WithCause(cause error) *Error {
	out := e.clone()
	out.Cause = cause
	return out
}

func (e *Error) clone() *Error {
	if e == nil {
		return New(KindSystem, 500, "")
	}
	out := *e
	return &out
}

// KindOf extracts the Kind from any error chain. Plain errors report
// KindSystem; nil reports the empty kind.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindSystem
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As extracts the *Error from the chain, normalizing plain errors into a
// system error so callers always get a populated taxonomy value.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return System(err.Error()).WithCause(err)
}
