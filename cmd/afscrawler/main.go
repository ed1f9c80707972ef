// Package main provides the entry point for the afscrawler CLI.
//
// afscrawler crawls student accommodation listings from
// accommodationforstudents.com through the site's Next.js data API and
// exports them as a JSON dataset.
//
// Usage:
//
//	afscrawler crawl
//	afscrawler crawl --location Leeds --location York
//	afscrawler export --format markdown
//
// See --help for all available options.
package main

func main() {
	Execute()
}
