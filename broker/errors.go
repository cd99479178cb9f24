package broker

import (
	"errors"
	"fmt"
	"net/http"
)

// Error classes. Every gateway failure wraps exactly one of these.
var (
	ErrTransport    = errors.New("broker transport failure")
	ErrRejected     = errors.New("broker rejected request")
	ErrNotFound     = errors.New("broker resource not found")
	ErrTransient    = errors.New("broker temporarily unavailable")
	ErrUnauthorized = errors.New("broker credentials rejected")
	ErrMalformed    = errors.New("malformed broker data")
)

// Error describes a failed gateway call.
type Error struct {
	Op     string // e.g. "submit order"
	Status int    // HTTP status, 0 when no response was received
	Body   string // truncated response body
	Kind   error  // one of the Err* classes above
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (http %d)", e.Status)
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ClassifyStatus maps a non-2xx HTTP status to an error class.
func ClassifyStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrTransient
	default:
		return ErrRejected
	}
}

// IsConnectivity reports whether err means the broker cannot be used at all.
func IsConnectivity(err error) bool {
	return errors.Is(err, ErrTransport) || errors.Is(err, ErrUnauthorized)
}

// Class returns a short metrics label for err's class.
func Class(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	default:
		return "other"
	}
}
