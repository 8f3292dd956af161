package api

import (
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/example/restarate/loadgen/internal/client"
)

// Error kinds of a failed call.
var (
	// ErrTransport covers network failures and timeouts.
	ErrTransport = client.ErrTransport
	// ErrUnexpectedStatus is matched by every *StatusError.
	ErrUnexpectedStatus = errors.New("api: unexpected status")
	// ErrMalformedResponse means the body lacked a field the caller needs.
	ErrMalformedResponse = errors.New("api: malformed response")
)

// StatusError reports a response whose status was not among the expected ones.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: unexpected status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

// Is makes errors.Is(err, ErrUnexpectedStatus) hold.
func (e *StatusError) Is(target error) bool {
	return target == ErrUnexpectedStatus
}

// Kind classifies an error returned by this package.
type Kind int

// Error kinds.
const (
	KindNone Kind = iota
	KindTransport
	KindStatus
	KindMalformed
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindMalformed:
		return "malformed"
	default:
		return "other"
	}
}

// KindOf returns the kind of err.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, ErrUnexpectedStatus):
		return KindStatus
	case errors.Is(err, ErrMalformedResponse):
		return KindMalformed
	default:
		return KindOther
	}
}

// StatusOf extracts the HTTP status from a *StatusError, or 0.
func StatusOf(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

const maxErrorBody = 200

// truncate cuts s to at most max bytes without splitting a character.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
