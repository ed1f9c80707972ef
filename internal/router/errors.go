package router

import "errors"

var (
	// ErrUnknownLabel is returned for a request label no handler serves.
	ErrUnknownLabel = errors.New("no handler for request label")

	// ErrMissingPageData is returned when a data handler runs on a context
	// without decoded JSON.
	ErrMissingPageData = errors.New("request has no page data")

	// ErrMissingLinks is returned when the context has no link enqueuer.
	ErrMissingLinks = errors.New("request has no link enqueuer")

	// ErrMissingUserData is returned when a SEARCH request lacks its page or location.
	ErrMissingUserData = errors.New("search request is missing user data")

	// ErrUnexpectedPayload is returned when a search payload lacks required fields.
	ErrUnexpectedPayload = errors.New("unexpected search payload")
)
