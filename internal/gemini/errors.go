// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import (
	"encoding/json"
	"errors"
	"net/http"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the Gemini client.
type ClientError struct {
	Type    ErrorType
	Status  int
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeNotConfigured
	ErrTypeAuth
	ErrTypeRateLimited
	ErrTypeModelNotFound
	ErrTypeConnection
	ErrTypeInvalidResponse
	ErrTypeBlocked
)

// Sentinel errors for easy checking.
var (
	ErrNotConfigured = &ClientError{Type: ErrTypeNotConfigured, Message: "Gemini API key not configured"}
	ErrAuthFailed    = &ClientError{Type: ErrTypeAuth, Message: "Gemini rejected the API key"}
	ErrRateLimited   = &ClientError{Type: ErrTypeRateLimited, Message: "Gemini rate limit exceeded"}
	ErrModelNotFound = &ClientError{Type: ErrTypeModelNotFound, Message: "model not found"}
)

// apiErrorResponse is the error envelope of the Generative Language API.
type apiErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// errorFromResponse converts a non-200 response body into a ClientError.
func errorFromResponse(status int, body []byte) error {
	msg := http.StatusText(status)
	var apiErr apiErrorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		msg = apiErr.Error.Message
	}

	typ := ErrTypeInvalidResponse
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		typ = ErrTypeAuth
	case http.StatusTooManyRequests:
		typ = ErrTypeRateLimited
	case http.StatusNotFound:
		typ = ErrTypeModelNotFound
	}
	return &ClientError{Type: typ, Status: status, Message: msg}
}

// IsAuth checks if an error is an authentication failure.
func IsAuth(err error) bool {
	return hasType(err, ErrTypeAuth)
}

// IsRateLimited checks if an error is a quota or rate limit error.
func IsRateLimited(err error) bool {
	return hasType(err, ErrTypeRateLimited)
}

// IsNotConfigured checks if an error means no API key was supplied.
func IsNotConfigured(err error) bool {
	return hasType(err, ErrTypeNotConfigured)
}

func hasType(err error, typ ErrorType) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == typ
	}
	return false
}
