package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/pipeline"
	"github.com/nao1215/afscrawler/internal/session"
)

const (
	// DefaultConcurrency is the number of requests processed at once.
	DefaultConcurrency = 4

	// DefaultMaxRequestRetries is how often a failed request is retried.
	DefaultMaxRequestRetries = 3

	// DefaultMaxSessionRotations is how often a blocked request is retried
	// under a fresh session.
	DefaultMaxSessionRotations = 10

	// DefaultRequestTimeout bounds one request's pipeline and handler.
	DefaultRequestTimeout = 60 * time.Second
)

// Handler processes a classified request; router.Router implements it.
type Handler interface {
	Route(ctx context.Context, pc *pipeline.Context) error
}

// Engine runs queued requests through the pipeline and the handler.
type Engine struct {
	queue        *RequestQueue
	pipeline     *pipeline.Pipeline
	handler      Handler
	sessions     *session.Pool
	limiter      *rate.Limiter
	concurrency  int
	maxRetries   int
	maxRotations int
	timeout      time.Duration
	stats        *Statistics
	logger       *slog.Logger

	mu    sync.Mutex
	fatal []error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithConcurrency sets the number of concurrent requests.
func WithConcurrency(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithMaxRequestRetries sets the retry budget per request.
func WithMaxRequestRetries(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithMaxSessionRotations sets how many fresh sessions a blocked request may use.
func WithMaxSessionRotations(n int) EngineOption {
	return func(e *Engine) {
		if n >= 0 {
			e.maxRotations = n
		}
	}
}

// WithRequestTimeout bounds each request. Zero disables the per-request timeout.
func WithRequestTimeout(d time.Duration) EngineOption {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithRateLimit paces request starts to rps per second. Zero disables pacing.
func WithRateLimit(rps float64) EngineOption {
	return func(e *Engine) {
		if rps > 0 {
			e.limiter = rate.NewLimiter(rate.Limit(rps), 1)
		} else {
			e.limiter = nil
		}
	}
}

// WithSessionPool runs every request under a session from pool.
func WithSessionPool(pool *session.Pool) EngineOption {
	return func(e *Engine) {
		e.sessions = pool
	}
}

// WithStatistics sets the statistics collector, typically the same value
// the fetch step records into.
func WithStatistics(stats *Statistics) EngineOption {
	return func(e *Engine) {
		e.stats = stats
	}
}

// WithEngineLogger sets the engine logger.
func WithEngineLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// NewEngine creates an engine draining queue.
func NewEngine(queue *RequestQueue, pipe *pipeline.Pipeline, handler Handler, opts ...EngineOption) *Engine {
	e := &Engine{
		queue:        queue,
		pipeline:     pipe,
		handler:      handler,
		concurrency:  DefaultConcurrency,
		maxRetries:   DefaultMaxRequestRetries,
		maxRotations: DefaultMaxSessionRotations,
		timeout:      DefaultRequestTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.stats == nil {
		e.stats = NewStatistics()
	}
	return e
}

// Statistics returns the engine's statistics collector.
func (e *Engine) Statistics() *Statistics {
	return e.stats
}

// Run seeds the queue with ROOT requests for seeds and processes requests
// until the queue drains or ctx is cancelled.
// Fatal request errors do not stop the crawl; they are reported afterwards
// as ErrCrawlIncomplete joined with each fatal error.
func (e *Engine) Run(ctx context.Context, seeds []string) error {
	if len(seeds) == 0 {
		return ErrNoSeeds
	}

	reqs := make([]model.CrawlRequest, 0, len(seeds))
	for _, seed := range seeds {
		req, err := model.NewCrawlRequest(seed, model.LabelRoot, nil)
		if err != nil {
			return fmt.Errorf("seed %q: %w", seed, err)
		}
		reqs = append(reqs, req)
	}
	if err := e.queue.AddRequests(ctx, reqs); err != nil {
		return err
	}

	e.logger.Info("crawl started", "seeds", len(seeds), "concurrency", e.concurrency)

	g := new(errgroup.Group)
	g.SetLimit(e.concurrency)

	runErr := e.dispatch(ctx, g)
	_ = g.Wait() //nolint:errcheck // workers never return errors

	e.stats.LogSummary(e.logger)

	e.mu.Lock()
	fatal := e.fatal
	e.mu.Unlock()

	if runErr != nil {
		return runErr
	}
	if len(fatal) > 0 {
		return errors.Join(append([]error{ErrCrawlIncomplete}, fatal...)...)
	}
	return nil
}

// dispatch hands queued requests to workers until the queue is finished.
func (e *Engine) dispatch(ctx context.Context, g *errgroup.Group) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, ok := e.queue.next()
		if !ok {
			if e.queue.IsFinished() {
				return nil
			}
			select {
			case <-e.queue.Changed():
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				e.queue.markFailed(ctx, item, err)
				return ctx.Err()
			}
		}

		g.Go(func() error {
			e.process(ctx, item)
			return nil
		})
	}
}

// process runs one request and applies the failure policy.
func (e *Engine) process(ctx context.Context, item *queuedRequest) {
	logger := e.logger.With("url", item.req.URL(), "label", item.req.Label().String())

	var sess *session.Session
	if e.sessions != nil {
		s, err := e.sessions.Get()
		if err != nil {
			e.fail(ctx, item, err, logger)
			return
		}
		sess = s
	}

	err := e.runRequest(ctx, item.req, sess)
	kind := classifyError(err)
	if kind != failureNone && ctx.Err() != nil {
		kind = failureCancelled
	}

	switch kind {
	case failureNone:
		if sess != nil {
			sess.MarkGood()
		}
		e.stats.finished.Add(1)
		e.queue.markHandled(ctx, item)

	case failureBlocked:
		e.stats.blocked.Add(1)
		if sess != nil {
			e.sessions.Retire(sess)
		}
		if item.rotations < e.maxRotations {
			item.rotations++
			logger.Warn("session blocked, retrying with a new session", "rotation", item.rotations, "error", err)
			e.queue.reclaim(item)
			return
		}
		e.fail(ctx, item, err, logger)

	case failureRetryable:
		if sess != nil {
			sess.MarkBad()
		}
		if item.retries < e.maxRetries {
			item.retries++
			e.stats.retries.Add(1)
			logger.Warn("request failed, retrying", "attempt", item.retries, "error", err)
			e.queue.reclaim(item)
			return
		}
		e.fail(ctx, item, err, logger)

	case failureFatal:
		e.mu.Lock()
		e.fatal = append(e.fatal, fmt.Errorf("%s: %w", item.req.URL(), err))
		e.mu.Unlock()
		e.fail(ctx, item, err, logger)

	case failureCancelled:
		e.stats.failed.Add(1)
		e.queue.markFailed(ctx, item, err)
	}
}

func (e *Engine) runRequest(ctx context.Context, req model.CrawlRequest, sess *session.Session) error {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	pc := pipeline.NewContext(req, sess, e.logger)
	if err := e.pipeline.Execute(ctx, pc); err != nil {
		return err
	}
	return e.handler.Route(ctx, pc)
}

func (e *Engine) fail(ctx context.Context, item *queuedRequest, err error, logger *slog.Logger) {
	logger.Error("request failed", "retries", item.retries, "rotations", item.rotations, "error", err)
	e.stats.failed.Add(1)
	e.queue.markFailed(ctx, item, err)
}
