package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/s3scan/pkg/provider"
	"github.com/3leaps/s3scan/pkg/scan"
)

// exitFailure is the catch-all exit code for errors without a mapping.
const exitFailure = 1

// Command outcome errors.
var (
	// ErrExpectationFailed is returned when a location is not in its expected state.
	ErrExpectationFailed = errors.New("expectation failed")
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	if errors.Is(err, context.Canceled) {
		return foundry.ExitSignalInt
	}
	return exitFailure
}

// scanFailure classifies an error returned by the scanner.
func scanFailure(location string, err error) error {
	switch {
	case errors.Is(err, scan.ErrInvalidLocation):
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	case errors.Is(err, context.DeadlineExceeded):
		return exitError(foundry.ExitExternalServiceUnavailable, "Scan timed out", err)
	case errors.Is(err, context.Canceled):
		return exitError(foundry.ExitSignalInt, "Scan cancelled", err)
	case errors.Is(err, provider.ErrMissingBucket):
		return exitError(foundry.ExitInvalidArgument, "Invalid location", err)
	default:
		return exitError(foundry.ExitExternalServiceUnavailable, fmt.Sprintf("Failed to scan %s", location), err)
	}
}
