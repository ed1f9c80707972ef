package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionBlocked matches every *SessionBlockedError.
	ErrSessionBlocked = errors.New("session blocked")

	// ErrMalformedPayload matches every *DecodeError.
	ErrMalformedPayload = errors.New("malformed JSON payload")

	// ErrNoResponse is returned when a step that needs a response runs before fetch.
	ErrNoResponse = errors.New("no response in crawl context")

	// ErrMissingTemplateValue is returned when a path template names a value
	// that neither the item nor the user data provides.
	ErrMissingTemplateValue = errors.New("path template value missing")
)

// SessionBlockedError reports a response whose status code marks the
// session as blocked.
type SessionBlockedError struct {
	StatusCode int
}

// Error implements error.
func (e *SessionBlockedError) Error() string {
	return fmt.Sprintf("assuming the session is blocked based on HTTP status code %d", e.StatusCode)
}

// Is reports whether target is ErrSessionBlocked.
func (e *SessionBlockedError) Is(target error) bool {
	return target == ErrSessionBlocked
}

// DecodeError reports a non-HTML response body that is not valid JSON.
type DecodeError struct {
	URL string
	Err error
}

// Error implements error.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying JSON error.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrMalformedPayload.
func (e *DecodeError) Is(target error) bool {
	return target == ErrMalformedPayload
}
