// Package database provides SQLite-based storage for crawl runs.
//
// The Store keeps three tables:
//   - runs: one row per crawl, keyed by a generated run ID
//   - properties: extracted listings, unique per property ID within a run
//   - requests: the last known state of every queued request
//
// SQLite is accessed through modernc.org/sqlite, which needs no cgo and
// keeps the whole history in a single file. The connection pool is limited
// to one connection because SQLite allows a single writer.
package database
