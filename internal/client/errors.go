package client

import (
	"errors"
	"fmt"
)

// Kind classifies a failed backend call.
type Kind string

const (
	// KindUnauthorized: the backend answered 401 or 403. The session has
	// already been cleared and the navigator told to show the login view.
	KindUnauthorized Kind = "unauthorized"
	// KindBusiness: the backend understood the request and refused it
	// (success:false or a structured error body). Message is for the user.
	KindBusiness Kind = "business"
	// KindTransport: network failure, timeout or an undecodable body.
	KindTransport Kind = "transport"
)

// GenericMessage is shown when the backend gives no usable message.
const GenericMessage = "An error occurred"

// SessionExpiredMessage is shown after a forced logout with no backend message.
const SessionExpiredMessage = "Your session has expired. Please log in again."

var (
	ErrUnauthorized       = errors.New("backend rejected the session")
	ErrBackendUnavailable = errors.New("backend unavailable")
)

// Error is the normalised failure of a backend call.
type Error struct {
	Kind      Kind
	Operation string
	Status    int
	Code      string
	Message   string
	Err       error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Operation, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrUnauthorized) true for every unauthorized error.
func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Kind == KindUnauthorized
}

// KindOf returns the kind of a client error, or "" for other errors.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return ""
}

// Message returns the text to show the user for err.
func Message(err error) string {
	var ce *Error
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	return GenericMessage
}
