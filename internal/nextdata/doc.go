// Package nextdata resolves the data API root of a Next.js site.
//
// A Next.js front end serves its page data under /_next/data/<buildId>/.
// The build identifier only appears inside the bootstrap HTML document, so it
// has to be scraped once before any data URL can be formed. ExtractBuildID
// performs that scrape and APIRoot holds the result for the rest of the crawl.
package nextdata
