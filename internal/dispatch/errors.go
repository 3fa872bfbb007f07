package dispatch

import (
	"errors"
	"fmt"
)

// ExitError lets a handler choose a specific exit status for its failure.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// WithStatus wraps err so that the dispatcher exits with code.
func WithStatus(code int, err error) error {
	return &ExitError{Code: code, Err: err}
}

// Usage marks err as a usage error (ExitUsage).
func Usage(err error) error {
	return &ExitError{Code: ExitUsage, Err: err}
}

// Usagef formats a usage error.
func Usagef(format string, args ...any) error {
	return Usage(fmt.Errorf(format, args...))
}

// IsUsage reports whether err carries the usage exit status.
func IsUsage(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Code == ExitUsage
}

// statusFor maps a handler error to an exit status in [1, 255].
func statusFor(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		if exitErr.Code < 1 || exitErr.Code > 255 {
			return ExitRuntime
		}
		return exitErr.Code
	}
	return ExitRuntime
}

// PanicError is returned in an Outcome when the handler panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.Value)
}
