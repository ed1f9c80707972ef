package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
	"github.com/nao1215/afscrawler/internal/session"
)

// Fetcher performs the network fetch for a request.
type Fetcher interface {
	Fetch(ctx context.Context, req model.CrawlRequest, sess *session.Session) (*model.RawResponse, error)
}

// FetchRecorder receives the outcome of every fetch.
type FetchRecorder interface {
	RecordFetch(req model.CrawlRequest, resp *model.RawResponse, elapsed time.Duration, err error)
}

// FetchStep downloads the response for the request. It never retries.
type FetchStep struct {
	fetcher  Fetcher
	recorder FetchRecorder
}

// NewFetchStep creates a fetch step. recorder may be nil.
func NewFetchStep(fetcher Fetcher, recorder FetchRecorder) *FetchStep {
	return &FetchStep{fetcher: fetcher, recorder: recorder}
}

// Name returns the step name.
func (s *FetchStep) Name() string {
	return "fetch"
}

// Do fetches the request and stores the response on the context.
// Transport errors are returned unchanged.
func (s *FetchStep) Do(ctx context.Context, pc *Context) error {
	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, pc.Request, pc.Session)
	if s.recorder != nil {
		s.recorder.RecordFetch(pc.Request, resp, time.Since(start), err)
	}
	if err != nil {
		return err
	}
	pc.Response = resp
	return nil
}

// BlockDetectionStep fails requests whose status code marks the session blocked.
type BlockDetectionStep struct {
	retryOnBlocked bool
}

// NewBlockDetectionStep creates the step. When retryOnBlocked is false the
// step passes every response through.
func NewBlockDetectionStep(retryOnBlocked bool) *BlockDetectionStep {
	return &BlockDetectionStep{retryOnBlocked: retryOnBlocked}
}

// Name returns the step name.
func (s *BlockDetectionStep) Name() string {
	return "block_detection"
}

// Do returns a *SessionBlockedError when the session considers the status blocking.
func (s *BlockDetectionStep) Do(_ context.Context, pc *Context) error {
	if !s.retryOnBlocked || pc.Session == nil {
		return nil
	}
	if pc.Response == nil {
		return ErrNoResponse
	}
	if pc.Session.IsBlockedStatusCode(pc.Response.StatusCode) {
		return &SessionBlockedError{StatusCode: pc.Response.StatusCode}
	}
	return nil
}

// ClassifyStep interprets the response body.
//
// An HTML response is the bootstrap page: its build identifier resolves the
// API root and PageData stays nil. Any other response is a data payload: it
// is decoded from ISO-8859-1 to UTF-8 and must be valid JSON.
type ClassifyStep struct {
	root      *nextdata.APIRoot
	submitter Submitter
	logger    *slog.Logger
}

// NewClassifyStep creates the step. submitter receives requests created
// through the context's LinkEnqueuer.
func NewClassifyStep(root *nextdata.APIRoot, submitter Submitter, logger *slog.Logger) *ClassifyStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ClassifyStep{root: root, submitter: submitter, logger: logger}
}

// Name returns the step name.
func (s *ClassifyStep) Name() string {
	return "classify"
}

// Do classifies the response and binds the link enqueuer.
func (s *ClassifyStep) Do(_ context.Context, pc *Context) error {
	resp := pc.Response
	if resp == nil {
		return ErrNoResponse
	}

	if resp.IsHTML() {
		if err := s.resolveBuildID(resp.Body); err != nil {
			return err
		}
	} else {
		data, err := decodePayload(resp.Body)
		if err != nil {
			return &DecodeError{URL: pc.Request.URL(), Err: err}
		}
		pc.PageData = data
	}

	pc.Links = NewLinkEnqueuer(s.root, s.submitter)
	return nil
}

func (s *ClassifyStep) resolveBuildID(body []byte) error {
	id, err := nextdata.ExtractBuildID(body)
	if err != nil {
		return err
	}
	if err := s.root.Resolve(id); err != nil {
		if errors.Is(err, nextdata.ErrBuildIDMismatch) {
			s.logger.Warn("ignoring build identifier from later bootstrap page", "error", err)
			return nil
		}
		return err
	}
	s.logger.Debug("build identifier resolved", "buildId", id)
	return nil
}

// decodePayload re-encodes an ISO-8859-1 body as UTF-8 and validates it as JSON.
func decodePayload(body []byte) (*PageData, error) {
	utf8Body, err := charmap.ISO8859_1.NewDecoder().Bytes(body)
	if err != nil {
		return nil, fmt.Errorf("latin-1 decode: %w", err)
	}
	return NewPageData(utf8Body)
}

// Dependencies are the collaborators of the default pipeline.
type Dependencies struct {
	Fetcher        Fetcher
	Recorder       FetchRecorder
	Root           *nextdata.APIRoot
	Submitter      Submitter
	RetryOnBlocked bool
	Logger         *slog.Logger
}

// DefaultPipeline builds the fetch -> block_detection -> classify pipeline.
func DefaultPipeline(deps Dependencies) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := New(WithLogger(logger))
	p.AddSteps(
		NewFetchStep(deps.Fetcher, deps.Recorder),
		NewBlockDetectionStep(deps.RetryOnBlocked),
		NewClassifyStep(deps.Root, deps.Submitter, logger),
	)
	return p
}
