// Package dataset collects extracted property records for a crawl and
// exports them as files.
package dataset
