package report

import (
	"io"

	"github.com/nao1215/afscrawler/internal/model"
)

// Writer renders a set of property records.
type Writer interface {
	// Write outputs the records to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(records []model.PropertyRecord) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
