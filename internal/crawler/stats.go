package crawler

import (
	"log/slog"
	"maps"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nao1215/afscrawler/internal/model"
)

// Statistics collects counters for one crawl. It is safe for concurrent use
// and implements pipeline.FetchRecorder.
type Statistics struct {
	started time.Time

	fetches       atomic.Int64
	fetchErrors   atomic.Int64
	bytes         atomic.Int64
	fetchDuration atomic.Int64
	finished      atomic.Int64
	failed        atomic.Int64
	retries       atomic.Int64
	blocked       atomic.Int64

	mu       sync.Mutex
	statuses map[int]int
}

// NewStatistics returns zeroed statistics with the clock started.
func NewStatistics() *Statistics {
	return &Statistics{
		started:  time.Now(),
		statuses: make(map[int]int),
	}
}

// RecordFetch records the outcome of one fetch.
func (s *Statistics) RecordFetch(_ model.CrawlRequest, resp *model.RawResponse, elapsed time.Duration, err error) {
	s.fetches.Add(1)
	s.fetchDuration.Add(int64(elapsed))
	if err != nil {
		s.fetchErrors.Add(1)
	}
	if resp == nil {
		return
	}
	s.bytes.Add(int64(len(resp.Body)))

	s.mu.Lock()
	s.statuses[resp.StatusCode]++
	s.mu.Unlock()
}

// StatsSnapshot is a point-in-time copy of Statistics.
type StatsSnapshot struct {
	Fetches          int64
	FetchErrors      int64
	Bytes            int64
	Finished         int64
	Failed           int64
	Retries          int64
	Blocked          int64
	StatusCodes      map[int]int
	MeanFetchLatency time.Duration
	Elapsed          time.Duration
}

// Snapshot returns a copy of the current counters.
func (s *Statistics) Snapshot() StatsSnapshot {
	s.mu.Lock()
	statuses := maps.Clone(s.statuses)
	s.mu.Unlock()

	snap := StatsSnapshot{
		Fetches:     s.fetches.Load(),
		FetchErrors: s.fetchErrors.Load(),
		Bytes:       s.bytes.Load(),
		Finished:    s.finished.Load(),
		Failed:      s.failed.Load(),
		Retries:     s.retries.Load(),
		Blocked:     s.blocked.Load(),
		StatusCodes: statuses,
		Elapsed:     time.Since(s.started),
	}
	if snap.Fetches > 0 {
		snap.MeanFetchLatency = time.Duration(s.fetchDuration.Load() / snap.Fetches)
	}
	return snap
}

// LogSummary writes the final crawl summary.
func (s *Statistics) LogSummary(logger *slog.Logger) {
	snap := s.Snapshot()
	logger.Info("crawl finished",
		"finished", snap.Finished,
		"failed", snap.Failed,
		"retries", snap.Retries,
		"blocked", snap.Blocked,
		"fetches", snap.Fetches,
		"bytes", snap.Bytes,
		"meanLatency", snap.MeanFetchLatency,
		"elapsed", snap.Elapsed.Round(time.Millisecond),
	)
}
