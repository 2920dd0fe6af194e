package api

import (
	"context"
	"errors"
	"fmt"
)

// Common API errors, matched with errors.Is against an *Error.
var (
	// ErrUnauthorized is matched by 401 and 403 responses.
	ErrUnauthorized = errors.New("not authorized")

	// ErrNotFound is matched by 404 responses.
	ErrNotFound = errors.New("resource not found")

	// ErrBadRequest is matched by 400 and 422 responses.
	ErrBadRequest = errors.New("request rejected by server")

	// ErrServer is matched by any 5xx response.
	ErrServer = errors.New("server error")

	// ErrTimeout is matched when the request deadline expired.
	ErrTimeout = errors.New("request timed out")
)

// Kind classifies where a request failed.
type Kind int

const (
	// KindTransport means the request never produced an HTTP response.
	KindTransport Kind = iota
	// KindRemote means the server answered with a 4xx or 5xx status.
	KindRemote
	// KindDecode means the response body could not be decoded.
	KindDecode
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindRemote:
		return "remote"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// Error describes a failed API call.
type Error struct {
	// Op is the client operation that failed (e.g., "ListIncomes").
	Op string

	// Kind tells transport failures apart from server rejections.
	Kind Kind

	// Status is the HTTP status for KindRemote errors.
	Status int

	// Message is the server-provided reason, if any.
	Message string

	// Err is the underlying error for transport and decode failures.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch e.Kind {
	case KindRemote:
		if e.Message != "" {
			return fmt.Sprintf("api: %s failed: status %d: %s", e.Op, e.Status, e.Message)
		}
		return fmt.Sprintf("api: %s failed: status %d", e.Op, e.Status)
	default:
		return fmt.Sprintf("api: %s failed (%s): %v", e.Op, e.Kind, e.Err)
	}
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is maps HTTP statuses and deadlines onto the sentinel errors.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.Kind == KindRemote && (e.Status == 401 || e.Status == 403)
	case ErrNotFound:
		return e.Kind == KindRemote && e.Status == 404
	case ErrBadRequest:
		return e.Kind == KindRemote && (e.Status == 400 || e.Status == 422)
	case ErrServer:
		return e.Kind == KindRemote && e.Status >= 500
	case ErrTimeout:
		return errors.Is(e.Err, context.DeadlineExceeded)
	}
	return false
}

// IsTransport reports whether err is a network-level failure.
func IsTransport(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == KindTransport
}

func newRemoteError(op string, status int, message string) *Error {
	return &Error{Op: op, Kind: KindRemote, Status: status, Message: message}
}

func newTransportError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Err: err}
}

func newDecodeError(op string, err error) *Error {
	return &Error{Op: op, Kind: KindDecode, Err: err}
}
