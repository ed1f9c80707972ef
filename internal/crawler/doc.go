// Package crawler schedules and runs crawl requests.
//
// # Components
//
//   - RequestQueue: FIFO queue with de-duplication by unique key and a cap
//     on the number of requests accepted per crawl
//   - Engine: dispatches queued requests to a bounded group of workers,
//     runs each through the processing pipeline and the router, and applies
//     the retry and session rotation policy
//   - Statistics: counters collected during the run
//
// # Failure policy
//
// A blocked session is retired and the request retried under a new session,
// without using up its retry budget. Transport, status, decode and handler
// errors are retried up to the configured limit. A missing build identifier
// or a programming error (unresolved API root, unknown label, bad template)
// fails the request at once and makes Run report ErrCrawlIncomplete.
//
// # Usage
//
//	queue := crawler.NewRequestQueue(50)
//	engine := crawler.NewEngine(queue, pipe, router, crawler.WithConcurrency(4))
//	err := engine.Run(ctx, []string{"https://www.accommodationforstudents.com/"})
package crawler
