// Package transport fetches crawl requests over HTTP.
//
// Client wraps a resty client whose round tripper is configured with a
// browser-like TLS fingerprint and a fixed browser header set, so the site
// treats the crawler as an ordinary browser. Response bodies are decoded
// according to Content-Encoding (gzip, deflate, br, zstd) and capped at a
// configurable size. Cookies live in the crawl session, not in the client,
// which lets several sessions share one connection pool.
//
// Requests can be spread over HTTP or SOCKS5 proxies; each session is pinned
// to one proxy for its lifetime.
package transport
