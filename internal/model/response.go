package model

import (
	"mime"
	"net/http"
	"strings"
)

// RawResponse is the result of one network fetch.
// It is owned by a single pipeline run and is not retained afterwards.
type RawResponse struct {
	// URL is the final URL after redirects.
	URL string

	// StatusCode is the HTTP response status code.
	StatusCode int

	// Header contains the response headers.
	Header http.Header

	// Body is the decompressed response body.
	Body []byte
}

// ContentType returns the raw Content-Type header value.
func (r *RawResponse) ContentType() string {
	if r == nil || r.Header == nil {
		return ""
	}
	return r.Header.Get("Content-Type")
}

// MediaType returns the lower-cased media type of the response without parameters.
func (r *RawResponse) MediaType() string {
	ct := r.ContentType()
	if ct == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		// Fall back to the part before the first parameter separator
		mediaType, _, _ = strings.Cut(ct, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// IsHTML reports whether the response declares an HTML document.
func (r *RawResponse) IsHTML() bool {
	return r.MediaType() == "text/html"
}
