// Package model defines the core data structures shared by the crawler.
//
// This package contains the following main types:
//   - Label: The closed set of handler states (ROOT, SEARCH, LISTING)
//   - CrawlRequest: An immutable unit of work for the request queue
//   - RawResponse: The status, headers, and body of a single fetch
//   - PropertyRecord: The structured record extracted from a listing
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The pipeline, router, crawler, and storage packages all need
// these types, so centralizing them prevents import cycles.
package model
