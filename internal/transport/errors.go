package transport

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownProfile is returned for an impersonation profile name that is not registered.
	ErrUnknownProfile = errors.New("unknown impersonation profile")

	// ErrInvalidProxyURL is returned when a proxy URL cannot be used.
	// Supported schemes are http, https, socks5 and socks5h.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")

	// ErrBodyTooLarge is returned when a decoded body exceeds the configured limit.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")

	// ErrUnsupportedEncoding is returned for a Content-Encoding the client cannot decode.
	ErrUnsupportedEncoding = errors.New("unsupported content encoding")
)

// StatusError reports a response whose status code is treated as a failure:
// any 5xx status, or one of the configured additional error codes.
type StatusError struct {
	StatusCode int
	URL        string
}

// Error implements error.
func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: HTTP %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}
