// Package apierr defines the error taxonomy shared by the gateway, the session
// store and the membership engine.
package apierr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure by how the client must react to it.
type Kind int

const (
	KindUnknown Kind = iota
	// Auth errors
	KindInvalidCode
	KindUnauthorized
	KindForbidden
	// Membership errors
	KindNotFound
	KindConflict
	KindValidation
	KindPolicy
	// Transient errors
	KindNetwork
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidCode:
		return "invalid_code"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindPolicy:
		return "policy"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Error is the uniform error shape returned by every outbound call.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status, 0 when no response arrived
	Op      string // e.g. "GET /teams/{id}"
	Message string // server detail or local description
	Cause   error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches by Kind so callers can use errors.Is(err, apierr.ErrConflict).
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind
	}
	return false
}

var (
	ErrInvalidCode  = &Error{Kind: KindInvalidCode}
	ErrUnauthorized = &Error{Kind: KindUnauthorized}
	ErrForbidden    = &Error{Kind: KindForbidden}
	ErrNotFound     = &Error{Kind: KindNotFound}
	ErrConflict     = &Error{Kind: KindConflict}
	ErrValidation   = &Error{Kind: KindValidation}
	ErrPolicy       = &Error{Kind: KindPolicy}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrServer       = &Error{Kind: KindServer}
)

// New creates an error of the given kind with a local message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf extracts the Kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsTransient reports whether err must never alter durable identity or membership state.
// Errors of unknown shape are treated as transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch KindOf(err) {
	case KindNetwork, KindServer, KindUnknown:
		return true
	default:
		return false
	}
}

// IsAuthorization reports whether err is a 401 or 403.
func IsAuthorization(err error) bool {
	k := KindOf(err)
	return k == KindUnauthorized || k == KindForbidden
}
