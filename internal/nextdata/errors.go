package nextdata

import "errors"

var (
	// ErrBuildIDNotFound is returned when a bootstrap page carries no build identifier.
	ErrBuildIDNotFound = errors.New("build identifier not found in bootstrap page")

	// ErrUnresolved is returned when the API root is read before a build
	// identifier has been resolved.
	ErrUnresolved = errors.New("API root requested before build identifier was resolved")

	// ErrBuildIDMismatch is returned when a second, different build identifier
	// is offered after the first one has been stored.
	ErrBuildIDMismatch = errors.New("build identifier differs from the resolved one")

	// ErrEmptyBuildID is returned when an empty identifier is offered to Resolve.
	ErrEmptyBuildID = errors.New("build identifier is empty")

	// ErrInvalidTemplate is returned when a base template lacks the build id placeholder.
	ErrInvalidTemplate = errors.New("API base template must contain " + Placeholder)
)
