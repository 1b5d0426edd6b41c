package service

import (
	"errors"
	"fmt"
)

// Messages reported when a refused register or login carries none.
const (
	SignupFailedMessage = "Signup failed"
	LoginFailedMessage  = "Login failed"
)

// ErrNotLoggedIn is returned when an operation needs a credential and none is held.
var ErrNotLoggedIn = errors.New("not logged in")

// Kind classifies a failure of a remote call.
type Kind int

const (
	// KindTransport means the request never completed.
	KindTransport Kind = iota + 1

	// KindAuth means the credential was missing or rejected.
	KindAuth

	// KindMalformed means the response could not be decoded.
	KindMalformed

	// KindRejected means the service answered with an application-level refusal.
	KindRejected
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindAuth:
		return "auth"
	case KindMalformed:
		return "malformed response"
	case KindRejected:
		return "rejected"
	}
	return "unknown"
}

// Error is a classified failure of a remote call.
type Error struct {
	Op      string // e.g. "list tasks"
	Kind    Kind
	Code    int    // HTTP status, 0 if none was received
	Message string // message reported by the service, if any
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Code != 0:
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Message, e.Code)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Code != 0:
		return fmt.Sprintf("%s: %s (HTTP %d)", e.Op, e.Kind, e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 if err is not classified.
// ErrNotLoggedIn anywhere in the chain counts as KindAuth.
func KindOf(err error) Kind {
	if err == nil {
		return 0
	}
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, ErrNotLoggedIn) {
		return KindAuth
	}
	return 0
}

// MessageOf returns the service-reported message in err's chain, or fallback.
func MessageOf(err error, fallback string) string {
	var se *Error
	if errors.As(err, &se) && se.Message != "" {
		return se.Message
	}
	return fallback
}
