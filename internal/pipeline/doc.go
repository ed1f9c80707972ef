// Package pipeline runs the per-request processing chain of the crawler.
//
// Every request passes through the same ordered steps:
//
//	fetch -> block_detection -> classify
//
// fetch downloads the response, block_detection turns a blocking status
// code into a session error, and classify either resolves the Next.js build
// identifier (HTML bootstrap page) or decodes a JSON data payload. The
// resulting Context carries the request, the response, the decoded page data
// and a LinkEnqueuer bound to the resolved API root.
//
// The first failing step stops the chain; its error is returned to the
// scheduler, which decides whether to retry.
package pipeline
