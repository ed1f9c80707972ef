package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/afscrawler/internal/model"
)

// SimpleWriter outputs a plain text summary for terminal display.
type SimpleWriter struct {
	baseWriter

	// verbose adds one line per listing.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose lists every record after the summary.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the summary in human-readable format.
func (w *SimpleWriter) Write(records []model.PropertyRecord) (int, error) {
	var sb strings.Builder
	s := Summarize(records)

	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                    ACCOMMODATION CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Listings:        %d\n", s.Total)
	fmt.Fprintf(&sb, "With rent:       %d\n", s.WithRent)
	fmt.Fprintf(&sb, "Mean rent/week:  %s\n", formatMoney(s.MeanRentPPW, s.WithRent))
	fmt.Fprintf(&sb, "Bills included:  %d\n", s.BillsIncluded)
	sb.WriteString("\n")

	if len(s.ByCity) > 0 {
		sb.WriteString("BY CITY\n")
		for _, c := range s.ByCity {
			fmt.Fprintf(&sb, "  %-30s %d\n", c.Label, c.N)
		}
		sb.WriteString("\n")
	}

	if w.verbose {
		sb.WriteString("LISTINGS\n")
		for _, r := range records {
			fmt.Fprintf(&sb, "  [%s] %s, %s, %s\n",
				r.PropertyID, orDash(r.PropertyType), orDash(r.City), formatRent(r.RentPPW))
		}
		sb.WriteString("\n")
	}

	return io.WriteString(w.output, sb.String())
}
