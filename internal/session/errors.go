package session

import "errors"

var (
	// ErrPoolClosed is returned by Get after the pool has been closed.
	ErrPoolClosed = errors.New("session pool is closed")

	// ErrInvalidPoolSize is returned when a pool is created with a non-positive size.
	ErrInvalidPoolSize = errors.New("session pool size must be positive")
)
