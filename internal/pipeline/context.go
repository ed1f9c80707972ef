package pipeline

import (
	"encoding/json"
	"log/slog"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/session"
)

// Context is the state one request accumulates while passing through the
// pipeline. It is owned by a single worker and never shared.
type Context struct {
	// Request is the request being processed.
	Request model.CrawlRequest

	// Session is the crawl session the request runs under; it may be nil.
	Session *session.Session

	// Response is set by the fetch step.
	Response *model.RawResponse

	// PageData is the decoded JSON payload.
	// It is nil when the response was the HTML bootstrap page.
	PageData *PageData

	// Links enqueues follow-up requests relative to the API root.
	// It is set by the classify step.
	Links *LinkEnqueuer

	// Log is the request-scoped logger.
	Log *slog.Logger
}

// NewContext returns a context for req. A nil logger falls back to slog.Default.
func NewContext(req model.CrawlRequest, sess *session.Session, logger *slog.Logger) *Context {
	if logger == nil {
		logger = slog.Default()
	}
	return &Context{
		Request: req,
		Session: sess,
		Log:     logger.With("url", req.URL(), "label", req.Label().String()),
	}
}

// PageData is a validated UTF-8 JSON document.
type PageData struct {
	raw json.RawMessage
}

// NewPageData validates data as UTF-8 JSON and wraps it.
func NewPageData(data []byte) (*PageData, error) {
	var raw json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	return &PageData{raw: raw}, nil
}

// Decode unmarshals the payload into v.
func (p *PageData) Decode(v any) error {
	return json.Unmarshal(p.raw, v)
}
