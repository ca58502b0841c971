// Package output provides structured output and error handling for the patchbay CLI.
package output

import "errors"

// Exit codes:
// 0 = Success
// 1 = User error (bad args, destructive call refused without --force)
// 2 = System error (network failure, I/O error)
// 3 = Conflict (file already exists)
// 4 = Configuration error (missing or invalid credentials)
// 5 = Vendor error (API rejected the call, rate limit budget exhausted)
const (
	ExitSuccess     = 0
	ExitUserError   = 1
	ExitSystemError = 2
	ExitConflict    = 3
	ExitConfigError = 4
	ExitVendorError = 5
)

// ExitCoder is implemented by errors that know their own exit code.
// Domain packages implement it so they don't have to wrap every error
// in an ExitError.
type ExitCoder interface {
	error
	ExitCode() int
}

// ExitError is an error that carries an exit code for the CLI.
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// Unwrap returns the underlying cause for errors.Is/errors.As support.
func (e *ExitError) Unwrap() error {
	return e.Cause
}

// ExitCode implements ExitCoder.
func (e *ExitError) ExitCode() int {
	return e.Code
}

// NewUserError creates an error for user-caused issues (exit code 1).
// Use for: bad arguments, invalid flag values, refused destructive calls.
func NewUserError(message string) *ExitError {
	return &ExitError{
		Code:    ExitUserError,
		Message: message,
	}
}

// NewSystemError creates an error for system failures (exit code 2).
// Use for: network failures, I/O errors.
func NewSystemError(message string) *ExitError {
	return &ExitError{
		Code:    ExitSystemError,
		Message: message,
	}
}

// NewSystemErrorWithCause creates a system error wrapping an underlying cause.
func NewSystemErrorWithCause(message string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitSystemError,
		Message: message,
		Cause:   cause,
	}
}

// NewConflictError creates an error for conflict situations (exit code 3).
// Use for: refusing to overwrite an existing credential file.
func NewConflictError(message string) *ExitError {
	return &ExitError{
		Code:    ExitConflict,
		Message: message,
	}
}

// NewConfigError creates an error for configuration problems (exit code 4).
// These are terminal: they are surfaced directly and never retried.
func NewConfigError(message string, cause error) *ExitError {
	return &ExitError{
		Code:    ExitConfigError,
		Message: message,
		Cause:   cause,
	}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil, ExitUserError for errors that carry no code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode()
	}

	// Default to user error for untyped errors
	return ExitUserError
}

// messageAndCode resolves the display message and exit code for an error.
// An ExitError keeps its own message; any other ExitCoder uses Error().
func messageAndCode(err error) (string, int) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Message, exitErr.Code
	}
	var coder ExitCoder
	if errors.As(err, &coder) {
		return coder.Error(), coder.ExitCode()
	}
	return err.Error(), ExitUserError
}
