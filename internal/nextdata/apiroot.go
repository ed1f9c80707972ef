package nextdata

import (
	"fmt"
	"strings"
	"sync"
)

// Placeholder is the token in the API base template replaced by the build identifier.
const Placeholder = "{build_id}"

// APIRoot is the crawl-wide API base: an immutable template plus an optional
// build identifier. The two are combined only when Base is called, so the
// template is never reformatted in place.
type APIRoot struct {
	template string

	mu      sync.RWMutex
	buildID string
}

// NewAPIRoot returns an unresolved API root for the given template,
// e.g. "https://example.com/_next/data/{build_id}".
func NewAPIRoot(template string) (*APIRoot, error) {
	if !strings.Contains(template, Placeholder) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTemplate, template)
	}
	return &APIRoot{template: strings.TrimRight(template, "/")}, nil
}

// Resolve stores the build identifier.
// The first call wins. Repeating it with the same identifier is a no-op, and
// a different identifier is rejected with ErrBuildIDMismatch.
func (r *APIRoot) Resolve(buildID string) error {
	if buildID == "" {
		return ErrEmptyBuildID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.buildID {
	case "":
		r.buildID = buildID
		return nil
	case buildID:
		return nil
	default:
		return fmt.Errorf("%w: have %q, got %q", ErrBuildIDMismatch, r.buildID, buildID)
	}
}

// Base returns the resolved API base URL without a trailing slash.
func (r *APIRoot) Base() (string, error) {
	r.mu.RLock()
	id := r.buildID
	r.mu.RUnlock()

	if id == "" {
		return "", ErrUnresolved
	}
	return strings.Replace(r.template, Placeholder, id, 1), nil
}

// BuildID returns the resolved identifier, or "" when unresolved.
func (r *APIRoot) BuildID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.buildID
}

// Resolved reports whether a build identifier has been stored.
func (r *APIRoot) Resolved() bool {
	return r.BuildID() != ""
}

// Template returns the unformatted base template.
func (r *APIRoot) Template() string {
	return r.template
}
