// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

// Package apierrors holds the error taxonomy shared by the engine, the task
// graph and the upload pipeline.
package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotConfigured is returned when no API key has been configured.
	ErrNotConfigured = errors.New("client is not configured: missing API key")
	// ErrNotAuthorized is returned when an authenticated call cannot obtain a token.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidInput is returned when a task input fails validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrIncompleteServerData is returned when the server acknowledged fewer
	// items than were submitted.
	ErrIncompleteServerData = errors.New("incomplete data returned by server")
	// ErrCancelled is the result of tasks cancelled before producing a value.
	ErrCancelled = errors.New("cancelled")
	// ErrNoFilesAvailable is returned when a container has nothing left to upload.
	ErrNoFilesAvailable = errors.New("no files available for upload")
)

// ServerError is a structured failure reported by the service.
type ServerError struct {
	Message  string
	HTTPCode int
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server responded with %d", e.HTTPCode)
	}
	return fmt.Sprintf("server responded with %d: %s", e.HTTPCode, e.Message)
}

// IsRateLimited reports whether the failure is an HTTP 429.
func (e *ServerError) IsRateLimited() bool {
	return e.HTTPCode == http.StatusTooManyRequests
}

// TransportError wraps a network level failure.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Invalid wraps ErrInvalidInput with a reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// HTTPCode returns the status carried by a ServerError in err's chain, or 0.
func HTTPCode(err error) int {
	var se *ServerError
	if errors.As(err, &se) {
		return se.HTTPCode
	}
	return 0
}
