package crawler

import (
	"errors"

	"github.com/nao1215/afscrawler/internal/nextdata"
	"github.com/nao1215/afscrawler/internal/pipeline"
	"github.com/nao1215/afscrawler/internal/router"
)

var (
	// ErrCrawlIncomplete is returned by Run when at least one request failed fatally.
	// It is joined with the fatal errors themselves.
	ErrCrawlIncomplete = errors.New("crawl finished with fatal request errors")

	// ErrNoSeeds is returned by Run when no seed URL is given.
	ErrNoSeeds = errors.New("no seed URLs")
)

// failureKind classifies a request error for the scheduler.
type failureKind int

const (
	failureNone failureKind = iota
	failureRetryable
	failureBlocked
	failureFatal
	failureCancelled
)

func (k failureKind) String() string {
	switch k {
	case failureNone:
		return "none"
	case failureRetryable:
		return "retryable"
	case failureBlocked:
		return "blocked"
	case failureFatal:
		return "fatal"
	case failureCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// classifyError maps a pipeline or handler error onto the failure policy.
func classifyError(err error) failureKind {
	switch {
	case err == nil:
		return failureNone
	case errors.Is(err, pipeline.ErrSessionBlocked):
		return failureBlocked
	case errors.Is(err, nextdata.ErrBuildIDNotFound),
		errors.Is(err, nextdata.ErrUnresolved),
		errors.Is(err, router.ErrUnknownLabel),
		errors.Is(err, pipeline.ErrMissingTemplateValue):
		return failureFatal
	default:
		return failureRetryable
	}
}
