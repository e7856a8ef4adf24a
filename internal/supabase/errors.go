package supabase

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
)

// Sentinel errors - Configuration
var (
	ErrMissingPublicConfig = errors.New("supabase: URL and anon key must be configured")
	ErrMissingServerConfig = errors.New("supabase: URL, anon key and service role key must be configured")
)

// Sentinel errors - Session
var (
	ErrSessionMissing      = errors.New("supabase: auth session missing")
	ErrCodeVerifierMissing = errors.New("supabase: PKCE code verifier missing")
	ErrOutsideRequest      = errors.New("supabase: cookies cannot be set outside a request")
	ErrHeadersWritten      = errors.New("supabase: cookies cannot be set after the response headers were written")
)

// Error is an error response returned by one of the Supabase services.
type Error struct {
	// StatusCode is the HTTP status code.
	StatusCode int `json:"-"`
	// Code is the machine readable error code (e.g. "user_already_exists", "PGRST301").
	Code string `json:"code"`
	// Message is the human readable message shown to users.
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}

// IsUnauthorized returns true for 401 and 403 responses.
func (e *Error) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsClientError returns true if the service rejected the request itself.
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

// AsError returns the Supabase error wrapped in err, if any.
func AsError(err error) (*Error, bool) {
	var sbErr *Error
	if errors.As(err, &sbErr) {
		return sbErr, true
	}
	return nil, false
}

// parseError parses an error response from GoTrue or PostgREST.
func parseError(statusCode int, body []byte) error {
	var payload struct {
		// GoTrue
		Msg              string `json:"msg"`
		ErrorCode        string `json:"error_code"`
		Err              string `json:"error"`
		ErrorDescription string `json:"error_description"`
		// PostgREST and Storage
		Message string          `json:"message"`
		Code    json.RawMessage `json:"code"`
	}

	if err := json.Unmarshal(body, &payload); err == nil {
		e := &Error{StatusCode: statusCode, Code: payload.ErrorCode}
		if e.Code == "" {
			e.Code = rawCode(payload.Code)
		}
		if e.Code == "" {
			e.Code = payload.Err
		}

		switch {
		case payload.Msg != "":
			e.Message = payload.Msg
		case payload.ErrorDescription != "":
			e.Message = payload.ErrorDescription
		case payload.Message != "":
			e.Message = payload.Message
		case payload.Err != "":
			e.Message = payload.Err
		}

		if e.Message != "" {
			return e
		}
	}

	// Fallback to generic error
	message := string(body)
	if message == "" {
		message = http.StatusText(statusCode)
	}
	return &Error{
		StatusCode: statusCode,
		Code:       strconv.Itoa(statusCode),
		Message:    message,
	}
}

// rawCode accepts both numeric (GoTrue) and string (PostgREST) codes.
func rawCode(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return strconv.Itoa(n)
	}
	return ""
}
