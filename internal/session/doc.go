// Package session provides crawl sessions and a bounded session pool.
//
// A Session carries the cookie jar and health counters of one logical
// browser identity. When the site answers with a blocking status code the
// session is retired and the request is retried under a fresh one.
package session
