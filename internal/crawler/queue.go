package crawler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nao1215/afscrawler/internal/model"
)

// Request states reported to a RequestLog.
const (
	StatePending = "pending"
	StateHandled = "handled"
	StateFailed  = "failed"
)

// RequestLog persists request state transitions.
type RequestLog interface {
	RecordRequest(ctx context.Context, req model.CrawlRequest, state string, retries int, errMsg string) error
}

// queuedRequest is a request plus its scheduling counters.
type queuedRequest struct {
	req       model.CrawlRequest
	retries   int
	rotations int
}

// RequestQueue is a FIFO request queue with de-duplication by unique key.
// It accepts at most maxRequests distinct requests per crawl; a value of
// zero or less means no limit. It is safe for concurrent use.
type RequestQueue struct {
	maxRequests int
	log         RequestLog
	logger      *slog.Logger

	mu       sync.Mutex
	pending  []*queuedRequest
	seen     map[string]struct{}
	accepted int
	dropped  int
	inFlight int
	handled  int
	failed   int

	changed chan struct{}
}

// QueueOption configures a RequestQueue.
type QueueOption func(*RequestQueue)

// WithRequestLog persists state transitions to log.
func WithRequestLog(log RequestLog) QueueOption {
	return func(q *RequestQueue) {
		q.log = log
	}
}

// WithQueueLogger sets the queue logger.
func WithQueueLogger(logger *slog.Logger) QueueOption {
	return func(q *RequestQueue) {
		q.logger = logger
	}
}

// NewRequestQueue creates a queue accepting at most maxRequests requests.
func NewRequestQueue(maxRequests int, opts ...QueueOption) *RequestQueue {
	q := &RequestQueue{
		maxRequests: maxRequests,
		seen:        make(map[string]struct{}),
		logger:      slog.Default(),
		changed:     make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// AddRequests enqueues reqs in order. Requests whose unique key was seen
// before are skipped, as are requests beyond the per-crawl limit.
// Accepted requests are recorded as pending before any worker can take them,
// so the request log never sees a later state first.
func (q *RequestQueue) AddRequests(ctx context.Context, reqs []model.CrawlRequest) error {
	added := make([]*queuedRequest, 0, len(reqs))

	q.mu.Lock()
	for _, req := range reqs {
		if _, dup := q.seen[req.UniqueKey()]; dup {
			continue
		}
		if q.maxRequests > 0 && q.accepted >= q.maxRequests {
			q.dropped++
			continue
		}
		q.seen[req.UniqueKey()] = struct{}{}
		q.accepted++
		added = append(added, &queuedRequest{req: req})
	}
	dropped := q.dropped
	q.mu.Unlock()

	if len(added) < len(reqs) {
		q.logger.Debug("requests skipped",
			"offered", len(reqs),
			"added", len(added),
			"droppedOverLimit", dropped,
		)
	}
	if len(added) == 0 {
		return nil
	}

	for _, item := range added {
		q.record(ctx, item.req, StatePending, 0, "")
	}

	q.mu.Lock()
	q.pending = append(q.pending, added...)
	q.mu.Unlock()
	q.notify()
	return nil
}

// next pops the oldest pending request and marks it in flight.
func (q *RequestQueue) next() (*queuedRequest, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil, false
	}
	item := q.pending[0]
	q.pending[0] = nil
	q.pending = q.pending[1:]
	q.inFlight++
	return item, true
}

// reclaim puts an in-flight request back at the end of the queue.
// It bypasses de-duplication and the request limit.
func (q *RequestQueue) reclaim(item *queuedRequest) {
	q.mu.Lock()
	q.pending = append(q.pending, item)
	q.inFlight--
	q.mu.Unlock()
	q.notify()
}

func (q *RequestQueue) markHandled(ctx context.Context, item *queuedRequest) {
	q.mu.Lock()
	q.inFlight--
	q.handled++
	q.mu.Unlock()
	q.notify()
	q.record(ctx, item.req, StateHandled, item.retries, "")
}

func (q *RequestQueue) markFailed(ctx context.Context, item *queuedRequest, err error) {
	q.mu.Lock()
	q.inFlight--
	q.failed++
	q.mu.Unlock()
	q.notify()

	msg := ""
	if err != nil {
		msg = err.Error()
	}
	q.record(ctx, item.req, StateFailed, item.retries, msg)
}

// IsFinished reports whether nothing is pending or in flight.
func (q *RequestQueue) IsFinished() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending) == 0 && q.inFlight == 0
}

// Changed is signalled whenever the queue state changes.
func (q *RequestQueue) Changed() <-chan struct{} {
	return q.changed
}

// QueueStats is a snapshot of queue counters.
type QueueStats struct {
	Pending  int
	InFlight int
	Accepted int
	Dropped  int
	Handled  int
	Failed   int
}

// Stats returns a snapshot of the queue counters.
func (q *RequestQueue) Stats() QueueStats {
	q.mu.Lock()
	defer q.mu.Unlock()
	return QueueStats{
		Pending:  len(q.pending),
		InFlight: q.inFlight,
		Accepted: q.accepted,
		Dropped:  q.dropped,
		Handled:  q.handled,
		Failed:   q.failed,
	}
}

func (q *RequestQueue) notify() {
	select {
	case q.changed <- struct{}{}:
	default:
	}
}

func (q *RequestQueue) record(ctx context.Context, req model.CrawlRequest, state string, retries int, errMsg string) {
	if q.log == nil {
		return
	}
	// The request log must outlive a cancelled crawl context
	if err := q.log.RecordRequest(context.WithoutCancel(ctx), req, state, retries, errMsg); err != nil {
		q.logger.Warn("failed to record request state", "url", req.URL(), "state", state, "error", err)
	}
}
