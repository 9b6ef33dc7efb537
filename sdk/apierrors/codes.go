// SPDX-FileCopyrightText: © 2025 DSLab - Fondazione Bruno Kessler
//
// SPDX-License-Identifier: Apache-2.0

package apierrors

import "errors"

// Code is a stable, machine readable classification of an error.
type Code string

const (
	CodeNotConfigured        Code = "NOT_CONFIGURED"
	CodeUnauthorized         Code = "UNAUTHORIZED"
	CodeServerError          Code = "SERVER_ERROR"
	CodeRateLimit            Code = "RATE_LIMIT_EXCEEDED"
	CodeNetwork              Code = "NETWORK_ERROR"
	CodeInvalidInput         Code = "INVALID_INPUT"
	CodeIncompleteServerData Code = "INCOMPLETE_SERVER_DATA"
	CodeCancelled            Code = "CANCELLED"
	CodeNoFiles              Code = "NO_FILES"
	CodeUnknown              Code = "UNKNOWN"
)

// CodeOf classifies err. A nil error has no code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	var se *ServerError
	var te *TransportError
	switch {
	case errors.Is(err, ErrNotConfigured):
		return CodeNotConfigured
	case errors.Is(err, ErrNotAuthorized):
		return CodeUnauthorized
	case errors.Is(err, ErrCancelled):
		return CodeCancelled
	case errors.Is(err, ErrInvalidInput):
		return CodeInvalidInput
	case errors.Is(err, ErrIncompleteServerData):
		return CodeIncompleteServerData
	case errors.Is(err, ErrNoFilesAvailable):
		return CodeNoFiles
	case errors.As(err, &se):
		if se.IsRateLimited() {
			return CodeRateLimit
		}
		return CodeServerError
	case errors.As(err, &te):
		return CodeNetwork
	}
	return CodeUnknown
}
