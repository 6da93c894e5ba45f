// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"

	"github.com/jeranaias/lumenarc/internal/app"
	"github.com/jeranaias/lumenarc/internal/config"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	// ExitSuccess indicates successful execution
	ExitSuccess = 0
	// ExitGeneralError covers failed turns and anything unclassified
	ExitGeneralError = 1
	// ExitUsageError indicates invalid command usage or arguments
	ExitUsageError = 2
	// ExitConfigError indicates an unreadable or invalid configuration, or
	// provider credentials that are missing or rejected
	ExitConfigError = 3
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// UsageError is a malformed command line.
type UsageError struct {
	Command string
	Reason  string
}

func (e *UsageError) Error() string {
	if e.Command == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Reason)
}

func usageErrorf(command, format string, args ...any) error {
	return &UsageError{Command: command, Reason: fmt.Sprintf(format, args...)}
}

// TurnError reports a turn that ended in the failed state.
type TurnError struct {
	Err error
}

func (e *TurnError) Error() string {
	if e.Err == nil {
		return "response failed"
	}
	return "response failed: " + e.Err.Error()
}

func (e *TurnError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a handler to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var usage *UsageError
	if errors.As(err, &usage) {
		return ExitUsageError
	}
	var invalid config.ValidationError
	if errors.As(err, &invalid) || app.IsConfigProblem(err) {
		return ExitConfigError
	}
	return ExitGeneralError
}

// FormatError renders err for stderr, followed by a hint line when the
// provider error has a known fix.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	msg := fmt.Sprintf("Error: %v\n", err)
	if hint := app.Explain(err); hint != "" {
		msg += "Hint: " + hint + "\n"
	}
	return msg
}
