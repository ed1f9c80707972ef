package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/afscrawler/internal/model"
)

// MarkdownWriter outputs a Markdown document with a summary, a property
// type chart and a listing table.
type MarkdownWriter struct {
	baseWriter

	// maxRows limits the listing table; zero means no limit.
	maxRows int
}

// MarkdownWriterOption configures a MarkdownWriter.
type MarkdownWriterOption func(*MarkdownWriter)

// WithMaxRows limits the number of listings in the table.
func WithMaxRows(n int) MarkdownWriterOption {
	return func(w *MarkdownWriter) {
		w.maxRows = n
	}
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, opts ...MarkdownWriterOption) *MarkdownWriter {
	w := &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the records in Markdown format.
func (w *MarkdownWriter) Write(records []model.PropertyRecord) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := Summarize(records)

	w.writeSummary(md, summary)
	w.writeBreakdown(md, summary)
	w.writeListings(md, records)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeSummary(md *markdown.Markdown, s Summary) {
	md.H1("Student Accommodation Listings")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Value"},
		Rows: [][]string{
			{"Listings", strconv.Itoa(s.Total)},
			{"Listings with rent", strconv.Itoa(s.WithRent)},
			{"Mean rent per week", formatMoney(s.MeanRentPPW, s.WithRent)},
			{"Rent range per week", formatRange(s)},
			{"Bills included", strconv.Itoa(s.BillsIncluded)},
		},
	})
	md.PlainText("")

	if s.Total == 0 {
		md.Note("The crawl produced no listings.")
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeBreakdown(md *markdown.Markdown, s Summary) {
	if s.Total == 0 {
		return
	}

	md.H2("Listings by City")
	md.PlainText("")
	rows := make([][]string, len(s.ByCity))
	for i, c := range s.ByCity {
		rows[i] = []string{c.Label, strconv.Itoa(c.N)}
	}
	md.Table(markdown.TableSet{Header: []string{"City", "Listings"}, Rows: rows})
	md.PlainText("")

	md.H2("Property Types")
	md.PlainText("")
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Property Type Distribution"),
		piechart.WithShowData(true),
	)
	for _, c := range s.ByType {
		chart.LabelAndIntValue(c.Label, uint64(c.N)) //nolint:gosec // counts are non-negative
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeListings(md *markdown.Markdown, records []model.PropertyRecord) {
	if len(records) == 0 {
		return
	}

	md.H2("Listings")
	md.PlainText("")

	shown := records
	if w.maxRows > 0 && len(shown) > w.maxRows {
		shown = shown[:w.maxRows]
	}

	rows := make([][]string, len(shown))
	for i, r := range shown {
		rows[i] = []string{
			"`" + r.PropertyID.String() + "`",
			orDash(r.PropertyType),
			orDash(r.City),
			orDash(r.Postcode),
			strconv.Itoa(r.NumberRooms),
			formatFloat(r.Bathrooms),
			formatRent(r.RentPPW),
			formatBool(r.BillsIncluded),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"ID", "Type", "City", "Postcode", "Rooms", "Bathrooms", "Rent/week", "Bills"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(shown) < len(records) {
		md.PlainTextf("*%d more listings omitted.*", len(records)-len(shown))
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainText("*Generated by afscrawler*")
}

func orDash(p *string) string {
	if p == nil || *p == "" {
		return "-"
	}
	return truncateString(*p, 40)
}

func formatFloat(p *float64) string {
	if p == nil {
		return "-"
	}
	return strconv.FormatFloat(*p, 'f', -1, 64)
}

func formatRent(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("£%.2f", *p)
}

func formatMoney(v float64, n int) string {
	if n == 0 {
		return "-"
	}
	return fmt.Sprintf("£%.2f", v)
}

func formatRange(s Summary) string {
	if s.WithRent == 0 {
		return "-"
	}
	return fmt.Sprintf("£%.2f - £%.2f", s.MinRentPPW, s.MaxRentPPW)
}

func formatBool(p *bool) string {
	switch {
	case p == nil:
		return "-"
	case *p:
		return "yes"
	default:
		return "no"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
