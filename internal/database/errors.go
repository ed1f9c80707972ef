package database

import "errors"

var (
	// ErrDatabaseNotFound is returned when opening without CreateIfNotExists
	// and the database file does not exist.
	ErrDatabaseNotFound = errors.New("database not found")

	// ErrNoRuns is returned when the store holds no crawl runs.
	ErrNoRuns = errors.New("no crawl runs recorded")

	// ErrEmptyRunID is returned when a run-scoped operation receives an empty run ID.
	ErrEmptyRunID = errors.New("run ID is empty")
)
