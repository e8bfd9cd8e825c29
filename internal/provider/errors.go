// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/ritvikindupuri/GlyphBreaker/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota

	// ErrTypeConfiguration means a required credential or setting is absent.
	ErrTypeConfiguration

	// ErrTypeConnectivity means the request failed before any HTTP response.
	ErrTypeConnectivity

	// ErrTypeHTTP means the provider answered with a non-2xx status.
	ErrTypeHTTP

	// ErrTypeInvalidRequest means the request could not be built.
	ErrTypeInvalidRequest

	// ErrTypeTimeout means a configured deadline expired.
	ErrTypeTimeout
)

// String returns a short name for the error type.
func (t ErrorType) String() string {
	switch t {
	case ErrTypeConfiguration:
		return "configuration"
	case ErrTypeConnectivity:
		return "connectivity"
	case ErrTypeHTTP:
		return "http"
	case ErrTypeInvalidRequest:
		return "invalid_request"
	case ErrTypeTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ClientError is the error every adapter returns for terminal failures.
// Its Error text is meant to be shown to the user as is.
type ClientError struct {
	Type     ErrorType
	Provider model.Provider

	// StatusCode is set for ErrTypeHTTP.
	StatusCode int

	// Code is a stable machine-readable reason, matched by errors.Is.
	Code string

	Message string

	// Hint is remediation advice appended to the message.
	Hint string

	Cause error
}

func (e *ClientError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.Hint != "" {
		msg += ". " + e.Hint
	}
	return msg
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel ClientErrors by Code so that errors.Is(err,
// ErrMissingAPIKey) holds for provider-specific copies with their own text.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok || t.Code == "" {
		return false
	}
	return t.Type == e.Type && t.Code == e.Code
}

// Sentinel errors for easy checking.
var (
	ErrMissingAPIKey = &ClientError{Type: ErrTypeConfiguration, Code: "missing_api_key", Message: "API key is missing"}
	ErrNoMessages    = &ClientError{Type: ErrTypeInvalidRequest, Code: "no_messages", Message: "no messages to send"}
	ErrUnknownModel  = &ClientError{Type: ErrTypeConfiguration, Code: "unknown_model", Message: "unknown model"}
)

// =============================================================================
// CONSTRUCTORS
// =============================================================================

// NewConfigurationError reports a missing credential or setting.
func NewConfigurationError(p model.Provider, message string) *ClientError {
	return &ClientError{Type: ErrTypeConfiguration, Provider: p, Message: message}
}

// NewMissingKeyError reports an absent API key with provider-specific text.
func NewMissingKeyError(p model.Provider, message string) *ClientError {
	return &ClientError{Type: ErrTypeConfiguration, Provider: p, Code: ErrMissingAPIKey.Code, Message: message}
}

// NewHTTPError reports a non-2xx response. message should already carry the
// provider-supplied detail unwrapped from its error envelope.
func NewHTTPError(p model.Provider, status int, message string) *ClientError {
	return &ClientError{Type: ErrTypeHTTP, Provider: p, StatusCode: status, Message: message}
}

// TransportError converts an error from http.Client.Do into the taxonomy.
// Caller cancellation is returned unchanged; a deadline becomes a timeout;
// anything else is a connectivity failure carrying message and hint.
func TransportError(ctx context.Context, p model.Provider, err error, message, hint string) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return &ClientError{
			Type:     ErrTypeTimeout,
			Provider: p,
			Message:  fmt.Sprintf("request to %s timed out", p.DisplayName()),
			Cause:    err,
		}
	}
	return &ClientError{
		Type:     ErrTypeConnectivity,
		Provider: p,
		Message:  message,
		Hint:     hint,
		Cause:    err,
	}
}

// =============================================================================
// ERROR CHECKS
// =============================================================================

func errorType(err error) (ErrorType, bool) {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type, true
	}
	return ErrTypeUnknown, false
}

// IsConfiguration checks if an error is a missing-credential error.
func IsConfiguration(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConfiguration
}

// IsConnectivity checks if an error is a network-level failure.
func IsConnectivity(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeConnectivity
}

// IsHTTP checks if an error is a non-2xx provider response.
func IsHTTP(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeHTTP
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	t, ok := errorType(err)
	return ok && t == ErrTypeTimeout
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.StatusCode
	}
	return 0
}
