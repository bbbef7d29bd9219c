package translate

import (
	"fmt"
	"net/http"
)

// TransportError is returned when a provider answers with a non-success status.
type TransportError struct {
	// Op is the failed operation, "Detect" or "Translate".
	Op         string
	StatusCode int
	// Status is the status text for StatusCode.
	Status string
	// Detail is the provider's own error message, when it sent one.
	Detail string
}

func newTransportError(op string, code int, detail string) *TransportError {
	return &TransportError{
		Op:         op,
		StatusCode: code,
		Status:     http.StatusText(code),
		Detail:     detail,
	}
}

func (e *TransportError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.Status
	}
	return fmt.Sprintf("%s failed: %d %s", e.Op, e.StatusCode, msg)
}

// ParseError is returned when a provider response body cannot be decoded.
// Missing fields inside a well-formed body are defaulted, not reported.
type ParseError struct {
	Op  string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s failed: decode response: %v", e.Op, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ConfigurationError is returned before any network call when a required
// credential is missing.
type ConfigurationError struct {
	// Setting is the configuration value that must be provided.
	Setting string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s is not configured: set it in the environment or config file", e.Setting)
}
