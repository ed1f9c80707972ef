package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() so callers can use
// errors.Is() to react to a specific misconfiguration.
var (
	// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrInvalidAPIRoot is returned when the API root template lacks the {build_id} placeholder.
	ErrInvalidAPIRoot = errors.New("invalid API root template: must contain {build_id}")

	// ErrInvalidPathTemplate is returned when the search or listing path lacks {item}.
	ErrInvalidPathTemplate = errors.New("invalid path template: must contain {item}")

	// ErrNoTargetLocations is returned when no location would be searched.
	ErrNoTargetLocations = errors.New("no target locations specified")

	// ErrInvalidMaxRequests is returned when the per-crawl request cap is negative.
	// Zero disables the cap.
	ErrInvalidMaxRequests = errors.New("invalid max requests per crawl: must be non-negative")

	// ErrInvalidRetries is returned when a retry or rotation budget is negative.
	ErrInvalidRetries = errors.New("invalid retry budget: must be non-negative")

	// ErrInvalidConcurrency is returned when concurrency is not positive.
	ErrInvalidConcurrency = errors.New("invalid concurrency: must be positive")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is not positive.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be positive")

	// ErrInvalidPoolSize is returned when the session pool size is not positive.
	ErrInvalidPoolSize = errors.New("invalid session pool size: must be positive")

	// ErrInvalidRateLimit is returned when the rate limit is negative.
	// Zero disables pacing.
	ErrInvalidRateLimit = errors.New("invalid rate limit: must be non-negative")

	// ErrInvalidStatusCode is returned for a status code outside 100-599.
	ErrInvalidStatusCode = errors.New("invalid HTTP status code")

	// ErrEmptyName is returned when the dataset or store name is empty.
	ErrEmptyName = errors.New("dataset and store names must not be empty")

	// ErrConflictingOutputFormats is returned when both JSON and Markdown
	// summaries are requested for stdout.
	ErrConflictingOutputFormats = errors.New("conflicting output formats: --json and --markdown cannot be used together")
)
