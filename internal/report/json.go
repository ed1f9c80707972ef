package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/afscrawler/internal/model"
)

// JSONWriter outputs records as one JSON array.
// An empty record set is written as [] rather than null.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the records as a JSON array followed by a newline.
func (w *JSONWriter) Write(records []model.PropertyRecord) (int, error) {
	if records == nil {
		records = []model.PropertyRecord{}
	}

	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(records, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(records)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
