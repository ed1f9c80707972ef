// Package report renders crawled property records.
//
// This package contains writers for different output formats:
//   - JSONWriter: a single JSON array, the dataset export format
//   - MarkdownWriter: a summary with tables and a property type chart
//   - SimpleWriter: a plain text summary for terminal display
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
