// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// errors.go - Error types and exit codes shared by all commands.
//
// Handlers return errors and never print-and-return-nil; main displays the
// error once and exits with GetExitCode.

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/ritvikindupuri/GlyphBreaker/internal/config"
	"github.com/ritvikindupuri/GlyphBreaker/internal/provider"
	"github.com/ritvikindupuri/GlyphBreaker/internal/storage"
	"github.com/ritvikindupuri/GlyphBreaker/internal/templates"
)

// =============================================================================
// EXIT CODES
// =============================================================================

const (
	ExitSuccess       = 0
	ExitGeneralError  = 1
	ExitUsageError    = 2
	ExitConfigError   = 3
	ExitAuthError     = 4
	ExitNetworkError  = 5
	ExitNotFoundError = 7
	ExitTimeoutError  = 8
	// ExitInterrupted follows the shell convention of 128+SIGINT.
	ExitInterrupted = 130
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// CommandError is a failure attributed to one command.
type CommandError struct {
	Command string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// ValidationError reports a bad argument value.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// NewValidationError creates a ValidationError.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}

// ErrMissingArgument reports a required argument with its usage line.
func ErrMissingArgument(argName, usage string) error {
	return &ValidationError{Field: argName, Reason: "is required (usage: " + usage + ")"}
}

// =============================================================================
// DISPLAY
// =============================================================================

// DisplayError prints err to stderr, as JSON in jsonMode.
func DisplayError(err error, jsonMode bool) {
	if err == nil {
		return
	}
	if jsonMode {
		data, _ := json.Marshal(map[string]interface{}{
			"success": false,
			"error":   err.Error(),
			"code":    GetExitCode(err),
		})
		fmt.Fprintln(os.Stderr, string(data))
		return
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("[ERROR]"), err.Error())
}

// GetExitCode maps an error to a process exit code.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	if errors.Is(err, context.Canceled) {
		return ExitInterrupted
	}

	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return ExitUsageError
	}
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Err == nil {
		return ExitUsageError
	}

	var cfgErrs config.ValidationErrors
	if errors.As(err, &cfgErrs) {
		return ExitConfigError
	}
	if errors.Is(err, storage.ErrSessionNotFound) || errors.Is(err, templates.ErrNotFound) {
		return ExitNotFoundError
	}

	switch {
	case provider.IsTimeout(err) || errors.Is(err, context.DeadlineExceeded):
		return ExitTimeoutError
	case provider.IsConfiguration(err):
		return ExitConfigError
	case provider.IsConnectivity(err):
		return ExitNetworkError
	case provider.IsHTTP(err):
		if code := provider.StatusCode(err); code == http.StatusUnauthorized || code == http.StatusForbidden {
			return ExitAuthError
		}
		return ExitNetworkError
	}

	return ExitGeneralError
}
