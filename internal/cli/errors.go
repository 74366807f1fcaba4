// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/jeranaias/chatrelay/internal/client"
	"github.com/jeranaias/chatrelay/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError indicates a general/unknown error
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates a configuration file or credential problem
	ExitConfigError = 3
	// ExitNetworkError indicates the relay could not be reached
	ExitNetworkError = 5
	// ExitTimeoutError indicates an operation timed out
	ExitTimeoutError = 8
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ExitError wraps an error with the exit code the process should return.
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

// withExitCode attaches code to err. A nil err stays nil.
func withExitCode(code int, err error) error {
	if err == nil {
		return nil
	}
	return &ExitError{Code: code, Err: err}
}

// ExitCodeFor maps an error returned by a command to a process exit code.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	var valErrs config.ValidateErrors
	if errors.As(err, &valErrs) {
		return ExitConfigError
	}

	var clientErr *client.ClientError
	if errors.As(err, &clientErr) {
		switch clientErr.Type {
		case client.ErrTypeTimeout:
			return ExitTimeoutError
		case client.ErrTypeConnection:
			return ExitNetworkError
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ExitTimeoutError
	}
	return ExitGeneralError
}
