package apierr

import (
	"net/http"
)

// FromStatus classifies an HTTP status code. Success codes return KindUnknown.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound, status == http.StatusGone:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusTooManyRequests, status == http.StatusRequestTimeout:
		return KindServer
	case status >= 500:
		return KindServer
	case status >= 400:
		return KindValidation
	default:
		return KindUnknown
	}
}

// FromResponse builds an Error for a non-2xx response.
func FromResponse(op string, status int, detail string) *Error {
	return &Error{
		Kind:    FromStatus(status),
		Status:  status,
		Op:      op,
		Message: detail,
	}
}

// Network wraps a transport failure where no response arrived.
func Network(op string, cause error) *Error {
	return &Error{Kind: KindNetwork, Op: op, Message: "request failed", Cause: cause}
}
