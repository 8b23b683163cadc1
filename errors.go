package relay

import (
	"errors"
	"fmt"
	"net/http"
)

// SubStatusCode classifies an Error beyond its HTTP-style status code.
type SubStatusCode string

const (
	// ConfigValidationError marks a defect in the runtime configuration.
	// These are startup-fatal: nothing may be served while one exists.
	ConfigValidationError SubStatusCode = "ConfigValidationError"

	// BadRequest marks a per-request defect, such as a value that cannot be
	// coerced to its column type or an upsert that updates nothing.
	BadRequest SubStatusCode = "BadRequest"

	// ErrorInInitialization marks a failure to build runtime state, such as
	// an unreachable database during metadata introspection.
	ErrorInInitialization SubStatusCode = "ErrorInInitialization"
)

// Sentinel errors for the classes callers branch on.
// A *Error matches the sentinel for its SubStatus under errors.Is, so
// callers can test the class without unpacking the message.
var (
	// ErrConfigValidation is matched by every configuration validation failure.
	ErrConfigValidation = errors.New("relay: configuration validation failed")

	// ErrBadRequest is matched by every request-level failure.
	ErrBadRequest = errors.New("relay: bad request")

	// ErrInitialization is matched by failures to build runtime state.
	ErrInitialization = errors.New("relay: initialization failed")
)

// Error is a classified failure with a fixed, testable message.
type Error struct {
	// Message is the exact user-facing text.
	Message string

	// StatusCode is the HTTP-style status a transport layer should use.
	StatusCode int

	// SubStatus distinguishes configuration defects from request defects.
	SubStatus SubStatusCode

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's class.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrConfigValidation:
		return e.SubStatus == ConfigValidationError
	case ErrBadRequest:
		return e.SubStatus == BadRequest
	case ErrInitialization:
		return e.SubStatus == ErrorInInitialization
	}
	return false
}

// NewConfigValidationError returns a service-unavailable configuration error.
func NewConfigValidationError(msg string) *Error {
	return &Error{
		Message:    msg,
		StatusCode: http.StatusServiceUnavailable,
		SubStatus:  ConfigValidationError,
	}
}

// ConfigValidationErrorf formats a configuration error message.
func ConfigValidationErrorf(format string, args ...any) *Error {
	return NewConfigValidationError(fmt.Sprintf(format, args...))
}

// NewBadRequestError returns a bad-request error.
func NewBadRequestError(msg string) *Error {
	return &Error{
		Message:    msg,
		StatusCode: http.StatusBadRequest,
		SubStatus:  BadRequest,
	}
}

// WrapBadRequest re-raises err as a bad request carrying err's message.
func WrapBadRequest(err error) *Error {
	return &Error{
		Message:    err.Error(),
		StatusCode: http.StatusBadRequest,
		SubStatus:  BadRequest,
		Err:        err,
	}
}

// NewInitializationError wraps a failure to build runtime state.
func NewInitializationError(msg string, err error) *Error {
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &Error{
		Message:    msg,
		StatusCode: http.StatusServiceUnavailable,
		SubStatus:  ErrorInInitialization,
		Err:        err,
	}
}

// AsError returns the first *Error in err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsConfigValidationErr returns true if err is or wraps a configuration validation error.
func IsConfigValidationErr(err error) bool {
	return errors.Is(err, ErrConfigValidation)
}

// IsInitializationErr returns true if err is or wraps an initialization error.
func IsInitializationErr(err error) bool {
	return errors.Is(err, ErrInitialization)
}

// IsBadRequestErr returns true if err is or wraps a bad-request error.
func IsBadRequestErr(err error) bool {
	return errors.Is(err, ErrBadRequest)
}
