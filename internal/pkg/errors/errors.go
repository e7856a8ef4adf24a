// Package errors provides the error envelope returned by the JSON endpoints.
package errors

import (
	stderrors "errors"
	"net/http"
)

// FormKey is the field key for errors that belong to the whole form.
const FormKey = "_form"

// APIError represents a standardized API error response.
type APIError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Details    any    `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// WithMessage returns a copy of the error with a custom message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{
		Code:       e.Code,
		Message:    message,
		StatusCode: e.StatusCode,
		Details:    e.Details,
	}
}

// Standard error definitions
var (
	// ErrUnauthorized is returned when the session is missing or expired.
	ErrUnauthorized = &APIError{
		Code:       "unauthorized",
		Message:    "Authentication required",
		StatusCode: http.StatusUnauthorized,
	}

	// ErrForbidden is returned when the auth provider refuses the operation.
	ErrForbidden = &APIError{
		Code:       "forbidden",
		Message:    "You don't have permission to perform this action",
		StatusCode: http.StatusForbidden,
	}

	ErrNotFound = &APIError{
		Code:       "not_found",
		Message:    "Resource not found",
		StatusCode: http.StatusNotFound,
	}

	ErrBadRequest = &APIError{
		Code:       "bad_request",
		Message:    "Invalid request",
		StatusCode: http.StatusBadRequest,
	}

	// ErrRateLimited is returned when a client submits forms too quickly.
	ErrRateLimited = &APIError{
		Code:       "rate_limited",
		Message:    "Too many requests. Please try again later.",
		StatusCode: http.StatusTooManyRequests,
	}

	ErrInternal = &APIError{
		Code:       "internal_error",
		Message:    "An internal error occurred",
		StatusCode: http.StatusInternalServerError,
	}

	// ErrConflict is returned when the provider reports that a user with the
	// same email exists.
	ErrConflict = &APIError{
		Code:       "conflict",
		Message:    "User already registered",
		StatusCode: http.StatusConflict,
	}

	// ErrServiceUnavailable is returned while Supabase cannot be reached.
	ErrServiceUnavailable = &APIError{
		Code:       "service_unavailable",
		Message:    "Service temporarily unavailable",
		StatusCode: http.StatusServiceUnavailable,
	}
)

// NewProviderError wraps a message returned by the auth or data provider.
// The status is kept when it is a client error, otherwise it becomes 502.
func NewProviderError(status int, code, message string) *APIError {
	if status < 400 || status >= 500 {
		status = http.StatusBadGateway
	}
	if code == "" {
		code = "provider_error"
	}
	return &APIError{
		Code:       code,
		Message:    message,
		StatusCode: status,
		Details: map[string][]string{
			FormKey: {message},
		},
	}
}

// AsAPIError converts an error to an APIError if possible.
// Returns ErrInternal if the error is not an APIError.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal
}
