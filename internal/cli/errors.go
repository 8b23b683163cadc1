// Package cli provides shared configuration and utilities for the relay CLI.
package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/pthm/relay"
)

// Exit codes.
const (
	ExitSuccess          = 0
	ExitGeneral          = 1
	ExitConfig           = 2
	ExitRuntimeConfig    = 3
	ExitDBConnect        = 4
	ExitConfigValidation = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for err.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if relay.IsConfigValidationErr(err) {
		return ExitConfigValidation
	}
	if relay.IsInitializationErr(err) {
		return ExitDBConnect
	}
	return ExitGeneral
}

// ExitWithError prints the error and exits with the appropriate code.
func ExitWithError(err error) {
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(ExitCode(err))
}

// ConfigError creates an ExitError with ExitConfig code.
func ConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitConfig, Message: msg, Err: err}
}

// RuntimeConfigError creates an ExitError with ExitRuntimeConfig code, for
// a runtime configuration that cannot be read or parsed.
func RuntimeConfigError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitRuntimeConfig, Message: msg, Err: err}
}

// DBConnectError creates an ExitError with ExitDBConnect code.
func DBConnectError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitDBConnect, Message: msg, Err: err}
}

// ConfigValidationError creates an ExitError with ExitConfigValidation code.
func ConfigValidationError(err error) *ExitError {
	return &ExitError{Code: ExitConfigValidation, Message: "invalid runtime config", Err: err}
}

// GeneralError creates an ExitError with ExitGeneral code.
func GeneralError(msg string, err error) *ExitError {
	return &ExitError{Code: ExitGeneral, Message: msg, Err: err}
}
