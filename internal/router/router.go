package router

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/pipeline"
)

const (
	// DefaultSearchPath is the search-results endpoint relative to the API root.
	DefaultSearchPath = "/search-results.json?&geo=false&page={page}&country=gb&location={item}"

	// DefaultListingPath is the property endpoint relative to the API root.
	DefaultListingPath = "/property/{item}.json"
)

// DefaultTargetLocations are the locations searched when none are configured.
var DefaultTargetLocations = []string{"London", "Manchester"}

// Sink receives extracted property records.
type Sink interface {
	PushData(ctx context.Context, rec model.PropertyRecord) error
}

// Router dispatches a processed request to the handler for its label.
type Router struct {
	targets     []string
	searchPath  string
	listingPath string
	sink        Sink
	logger      *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithTargetLocations sets the locations the ROOT handler searches.
func WithTargetLocations(locations []string) Option {
	return func(r *Router) {
		r.targets = slices.Clone(locations)
	}
}

// WithSearchPath sets the search path template.
func WithSearchPath(tmpl string) Option {
	return func(r *Router) {
		r.searchPath = tmpl
	}
}

// WithListingPath sets the listing path template.
func WithListingPath(tmpl string) Option {
	return func(r *Router) {
		r.listingPath = tmpl
	}
}

// WithLogger sets the router logger, used when a context has none.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Router) {
		r.logger = logger
	}
}

// New creates a Router that pushes records to sink.
func New(sink Sink, opts ...Option) *Router {
	r := &Router{
		targets:     slices.Clone(DefaultTargetLocations),
		searchPath:  DefaultSearchPath,
		listingPath: DefaultListingPath,
		sink:        sink,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route runs the handler for the request's label.
func (r *Router) Route(ctx context.Context, pc *pipeline.Context) error {
	switch label := pc.Request.Label(); label {
	case model.LabelRoot:
		return r.handleRoot(ctx, pc)
	case model.LabelSearch:
		return r.handleSearch(ctx, pc)
	case model.LabelListing:
		return r.handleListing(ctx, pc)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownLabel, label)
	}
}

func (r *Router) log(pc *pipeline.Context) *slog.Logger {
	if pc.Log != nil {
		return pc.Log
	}
	return r.logger
}

// handleRoot starts one first-page search per target location.
func (r *Router) handleRoot(ctx context.Context, pc *pipeline.Context) error {
	r.log(pc).Info("default handler is processing", "url", pc.Request.URL())

	if pc.Links == nil {
		return ErrMissingLinks
	}
	return pc.Links.EnqueueLinks(ctx, pipeline.LinkSpec{
		PathTemplate: r.searchPath,
		Items:        r.targets,
		Label:        model.LabelSearch,
		UserData:     model.UserData{"page": 1},
	})
}

// handleSearch enqueues the next page of the same location while pages
// remain, then one LISTING per result that carries a property.
func (r *Router) handleSearch(ctx context.Context, pc *pipeline.Context) error {
	logger := r.log(pc)
	logger.Info("search handler is processing", "url", pc.Request.URL())

	if pc.PageData == nil {
		return ErrMissingPageData
	}
	if pc.Links == nil {
		return ErrMissingLinks
	}

	userData := pc.Request.UserData()
	page, ok := userData.Int("page")
	if !ok {
		return fmt.Errorf("%w: page", ErrMissingUserData)
	}
	location, ok := userData.String("location")
	if !ok {
		return fmt.Errorf("%w: location", ErrMissingUserData)
	}

	var payload searchPayload
	if err := pc.PageData.Decode(&payload); err != nil {
		return fmt.Errorf("decode search page: %w", err)
	}
	if payload.PageProps == nil || payload.PageProps.InitialPageCount == nil {
		return fmt.Errorf("%w: pageProps.initialPageCount is missing", ErrUnexpectedPayload)
	}

	if maxPages := *payload.PageProps.InitialPageCount; page < maxPages {
		err := pc.Links.EnqueueLinks(ctx, pipeline.LinkSpec{
			PathTemplate: r.searchPath,
			Items:        []string{location},
			Label:        model.LabelSearch,
			UserData:     model.UserData{"page": page + 1},
		})
		if err != nil {
			return err
		}
	}

	ids := payload.listingIDs()
	logger.Debug("search page parsed", "location", location, "page", page, "listings", len(ids))

	return pc.Links.EnqueueLinks(ctx, pipeline.LinkSpec{
		PathTemplate: r.listingPath,
		Items:        ids,
		Label:        model.LabelListing,
	})
}

// handleListing pushes exactly one record for a live listing and nothing
// for a missing one. It never enqueues.
func (r *Router) handleListing(ctx context.Context, pc *pipeline.Context) error {
	logger := r.log(pc)
	logger.Info("listing handler is processing", "url", pc.Request.URL())

	if pc.PageData == nil {
		return ErrMissingPageData
	}

	var payload listingPayload
	if err := pc.PageData.Decode(&payload); err != nil {
		return fmt.Errorf("decode listing page: %w", err)
	}

	details := payload.details()
	if details == nil {
		logger.Warn("listing has no property details, skipping", "url", pc.Request.URL())
		return nil
	}

	rec, invalid := details.record()
	if len(invalid) > 0 {
		logger.Warn("listing fields have an unexpected type, leaving them null",
			"url", pc.Request.URL(), "fields", invalid)
	}
	return r.sink.PushData(ctx, rec)
}
