package llm

import (
	"errors"
	"fmt"
)

// StreamError represents a failure while starting or consuming a stream.
type StreamError struct {
	// Type categorizes the error
	Type string

	// Message is a human-readable error message
	Message string

	// Code is the HTTP status code (if applicable)
	Code int

	// Err is the underlying error
	Err error
}

// Error types.
const (
	ErrorTypeNetwork     = "network"
	ErrorTypeAPI         = "api"
	ErrorTypeParse       = "parse"
	ErrorTypeCredentials = "credentials"
)

// Error implements the error interface.
func (e *StreamError) Error() string {
	if e.Code > 0 {
		return fmt.Sprintf("stream %s error (code %d): %s", e.Type, e.Code, e.Message)
	}
	return fmt.Sprintf("stream %s error: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error.
func (e *StreamError) Unwrap() error {
	return e.Err
}

// NewNetworkError creates a network error.
func NewNetworkError(err error) *StreamError {
	return &StreamError{
		Type:    ErrorTypeNetwork,
		Message: "failed to reach the backend; check your network connection",
		Err:     err,
	}
}

// NewAPIError creates an API error with status code.
func NewAPIError(code int, message string) *StreamError {
	return &StreamError{
		Type:    ErrorTypeAPI,
		Code:    code,
		Message: message,
	}
}

// NewParseError creates a parse error for a frame payload.
func NewParseError(payload string, err error) *StreamError {
	return &StreamError{
		Type:    ErrorTypeParse,
		Message: fmt.Sprintf("failed to parse frame: %s", payload),
		Err:     err,
	}
}

// NewCredentialsError creates an error for a backend with no key configured.
// Detected before any network call so the UI can show a setup hint instead of
// a generic failure.
func NewCredentialsError(mode Mode) *StreamError {
	return &StreamError{
		Type:    ErrorTypeCredentials,
		Message: fmt.Sprintf("no API key configured for backend %q", mode),
	}
}

// IsCredentials reports whether err is a missing-credentials error.
func IsCredentials(err error) bool {
	var se *StreamError
	return errors.As(err, &se) && se.Type == ErrorTypeCredentials
}
