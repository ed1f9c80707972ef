package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
	"github.com/nao1215/afscrawler/internal/pipeline"
	"github.com/nao1215/afscrawler/internal/router"
	"github.com/nao1215/afscrawler/internal/session"
	"github.com/nao1215/afscrawler/internal/transport"
)

const siteBuildID = "AbCdEfGhIjKlMnOpQrStU"

// fakeSite serves a small Next.js-style property site.
type fakeSite struct {
	// pages maps a location to its number of search pages.
	pages map[string]int
	// listings maps "location/page" to the property ids on that page.
	listings map[string][]int
	// bootstrap overrides the bootstrap HTML when non-empty.
	bootstrap string
	// blockOnce lists property ids answered with 403 on the first request.
	blockOnce []int
	// alwaysFail lists property ids that always answer 500.
	alwaysFail []int

	mu       sync.Mutex
	hits     map[string]int
	sessions map[string]bool
}

func (s *fakeSite) hit(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hits == nil {
		s.hits = map[string]int{}
	}
	s.hits[path]++
	return s.hits[path]
}

func (s *fakeSite) hitCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

func (s *fakeSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := s.hit(r.URL.Path)
	prefix := "/_next/data/" + siteBuildID

	switch {
	case r.URL.Path == "/":
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		body := s.bootstrap
		if body == "" {
			body = `<html><script id="__NEXT_DATA__">{"buildId":"` + siteBuildID + `"}</script></html>`
		}
		_, _ = w.Write([]byte(body))

	case r.URL.Path == prefix+"/search-results.json":
		loc := r.URL.Query().Get("location")
		page := r.URL.Query().Get("page")
		var results []string
		for _, id := range s.listings[loc+"/"+page] {
			results = append(results, fmt.Sprintf(`{"property":{"id":%d}}`, id))
		}
		results = append(results, `{"advert":true}`)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pageProps":{"initialPageCount":%d,"initialListings":{"groups":[{"results":[%s]}]}}}`,
			s.pages[loc], strings.Join(results, ","))

	case strings.HasPrefix(r.URL.Path, prefix+"/property/"):
		id, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix+"/property/"), ".json"))
		if slices.Contains(s.alwaysFail, id) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if slices.Contains(s.blockOnce, id) && n == 1 {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"pageProps":{"viewModel":{"propertyDetails":{"id":%d,"propertyType":"Flat","rooms":[{},{}],"terms":{"rentPpw":{"value":%d}}}}}}`, id, 100+id)

	default:
		http.NotFound(w, r)
	}
}

// memorySink collects pushed records.
type memorySink struct {
	mu      sync.Mutex
	records []model.PropertyRecord
}

func (s *memorySink) PushData(_ context.Context, rec model.PropertyRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *memorySink) ids() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.records))
	for _, r := range s.records {
		ids = append(ids, r.PropertyID.String())
	}
	slices.Sort(ids)
	return ids
}

// enqueueLog records the order in which requests became pending.
type enqueueLog struct {
	mu      sync.Mutex
	pending []model.CrawlRequest
}

func (l *enqueueLog) RecordRequest(_ context.Context, req model.CrawlRequest, state string, _ int, _ string) error {
	if state != StatePending {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = append(l.pending, req)
	return nil
}

func (l *enqueueLog) requests() []model.CrawlRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.pending)
}

type harness struct {
	engine *Engine
	queue  *RequestQueue
	sink   *memorySink
	root   *nextdata.APIRoot
}

func newHarness(t *testing.T, srvURL string, maxRequests int, opts ...EngineOption) *harness {
	t.Helper()
	return newLoggedHarness(t, srvURL, maxRequests, nil, opts...)
}

// newLoggedHarness is newHarness with the queue reporting to reqLog when it is non-nil.
func newLoggedHarness(t *testing.T, srvURL string, maxRequests int, reqLog RequestLog, opts ...EngineOption) *harness {
	t.Helper()

	logger := discardLogger()
	root, err := nextdata.NewAPIRoot(srvURL + "/_next/data/{build_id}")
	if err != nil {
		t.Fatal(err)
	}
	client, err := transport.NewClient(transport.WithLogger(logger), transport.WithTimeout(5*time.Second))
	if err != nil {
		t.Fatal(err)
	}
	pool, err := session.NewPool(4, session.WithLogger(logger))
	if err != nil {
		t.Fatal(err)
	}

	stats := NewStatistics()
	queueOpts := []QueueOption{WithQueueLogger(logger)}
	if reqLog != nil {
		queueOpts = append(queueOpts, WithRequestLog(reqLog))
	}
	queue := NewRequestQueue(maxRequests, queueOpts...)
	pipe := pipeline.DefaultPipeline(pipeline.Dependencies{
		Fetcher:        client,
		Recorder:       stats,
		Root:           root,
		Submitter:      queue,
		RetryOnBlocked: true,
		Logger:         logger,
	})
	sink := &memorySink{}
	rt := router.New(sink, router.WithLogger(logger))

	opts = append([]EngineOption{
		WithSessionPool(pool),
		WithStatistics(stats),
		WithEngineLogger(logger),
		WithRequestTimeout(10 * time.Second),
	}, opts...)

	return &harness{
		engine: NewEngine(queue, pipe, rt, opts...),
		queue:  queue,
		sink:   sink,
		root:   root,
	}
}

func TestEngineRun(t *testing.T) {
	t.Parallel()

	t.Run("crawls every search page and listing", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages: map[string]int{"London": 2, "Manchester": 1},
			listings: map[string][]int{
				"London/1":     {1, 2},
				"London/2":     {3},
				"Manchester/1": {4, 2},
			},
		}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		h := newHarness(t, srv.URL, 50)
		if err := h.engine.Run(context.Background(), []string{srv.URL + "/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got, want := h.sink.ids(), []string{"1", "2", "3", "4"}; !slices.Equal(got, want) {
			t.Errorf("record ids = %v, want %v", got, want)
		}
		if h.root.BuildID() != siteBuildID {
			t.Errorf("BuildID() = %q", h.root.BuildID())
		}
		// Listing 2 appears under two locations but is fetched once
		if n := site.hitCount("/_next/data/" + siteBuildID + "/property/2.json"); n != 1 {
			t.Errorf("property 2 fetched %d times, want 1", n)
		}
		snap := h.engine.Statistics().Snapshot()
		// root + 3 search pages + 4 listings
		if snap.Finished != 8 || snap.Failed != 0 {
			t.Errorf("finished = %d, failed = %d; want 8, 0", snap.Finished, snap.Failed)
		}
	})

	t.Run("first search pages are enqueued before any listing", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages: map[string]int{"London": 2, "Manchester": 1},
			listings: map[string][]int{
				"London/1":     {1},
				"London/2":     {2},
				"Manchester/1": {3},
			},
		}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		reqLog := &enqueueLog{}
		h := newLoggedHarness(t, srv.URL, 50, reqLog)
		if err := h.engine.Run(context.Background(), []string{srv.URL + "/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		reqs := reqLog.requests()
		if len(reqs) < 3 {
			t.Fatalf("enqueued %d requests, want at least 3", len(reqs))
		}
		if reqs[0].Label() != model.LabelRoot {
			t.Errorf("first request is %s, want ROOT", reqs[0].Label())
		}
		for i, loc := range []string{"London", "Manchester"} {
			req := reqs[i+1]
			page, _ := req.UserData().Int("page")
			location, _ := req.UserData().String("location")
			if req.Label() != model.LabelSearch || page != 1 || location != loc {
				t.Errorf("request %d = %s page %d location %q, want SEARCH page 1 %s",
					i+1, req.Label(), page, location, loc)
			}
		}
		for _, req := range reqs[3:] {
			if req.Label() == model.LabelSearch {
				if page, _ := req.UserData().Int("page"); page == 1 {
					t.Errorf("first search page enqueued late: %s", req.URL())
				}
			}
		}
	})

	t.Run("blocked listing is retried under a new session", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages:     map[string]int{"London": 1},
			listings:  map[string][]int{"London/1": {7}},
			blockOnce: []int{7},
		}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		h := newHarness(t, srv.URL, 50, WithMaxRequestRetries(0))
		if err := h.engine.Run(context.Background(), []string{srv.URL + "/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if got := h.sink.ids(); !slices.Equal(got, []string{"7"}) {
			t.Errorf("record ids = %v, want [7]", got)
		}
		snap := h.engine.Statistics().Snapshot()
		if snap.Blocked != 1 || snap.Retries != 0 {
			t.Errorf("blocked = %d, retries = %d; want 1, 0", snap.Blocked, snap.Retries)
		}
	})

	t.Run("server errors exhaust the retry budget without failing the crawl", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages:      map[string]int{"London": 1},
			listings:   map[string][]int{"London/1": {5, 6}},
			alwaysFail: []int{6},
		}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		h := newHarness(t, srv.URL, 50, WithMaxRequestRetries(2))
		if err := h.engine.Run(context.Background(), []string{srv.URL + "/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		if n := site.hitCount("/_next/data/" + siteBuildID + "/property/6.json"); n != 3 {
			t.Errorf("failing listing fetched %d times, want 3", n)
		}
		if got := h.sink.ids(); !slices.Equal(got, []string{"5"}) {
			t.Errorf("record ids = %v, want [5]", got)
		}
		if snap := h.engine.Statistics().Snapshot(); snap.Failed != 1 || snap.Retries != 2 {
			t.Errorf("failed = %d, retries = %d; want 1, 2", snap.Failed, snap.Retries)
		}
	})

	t.Run("missing build id makes the crawl incomplete", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{bootstrap: `<html>Just a moment...</html>`}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		reqLog := &enqueueLog{}
		h := newLoggedHarness(t, srv.URL, 50, reqLog)
		err := h.engine.Run(context.Background(), []string{srv.URL + "/"})
		if !errors.Is(err, ErrCrawlIncomplete) || !errors.Is(err, nextdata.ErrBuildIDNotFound) {
			t.Fatalf("Run() error = %v, want ErrCrawlIncomplete joined with ErrBuildIDNotFound", err)
		}
		if st := h.queue.Stats(); st.Accepted != 1 || st.Failed != 1 {
			t.Errorf("queue stats = %+v, want only the bootstrap request", st)
		}
		for _, req := range reqLog.requests() {
			if req.Label() != model.LabelRoot {
				t.Errorf("unexpected %s request enqueued: %s", req.Label(), req.URL())
			}
		}
		if site.hitCount("/") != 1 {
			t.Errorf("bootstrap fetched %d times, want exactly 1 (no retry)", site.hitCount("/"))
		}
		if len(h.sink.ids()) != 0 {
			t.Error("no records expected")
		}
	})

	t.Run("request limit caps the crawl", func(t *testing.T) {
		t.Parallel()

		site := &fakeSite{
			pages:    map[string]int{"London": 1, "Manchester": 1},
			listings: map[string][]int{"London/1": {1, 2, 3}, "Manchester/1": {4, 5}},
		}
		srv := httptest.NewServer(site)
		t.Cleanup(srv.Close)

		h := newHarness(t, srv.URL, 4, WithConcurrency(1))
		if err := h.engine.Run(context.Background(), []string{srv.URL + "/"}); err != nil {
			t.Fatalf("Run() error = %v", err)
		}

		st := h.queue.Stats()
		if st.Accepted != 4 || st.Handled != 4 {
			t.Errorf("queue stats = %+v, want 4 accepted and handled", st)
		}
		// root + 2 searches leave room for exactly one listing
		if n := len(h.sink.ids()); n != 1 {
			t.Errorf("records = %d, want 1", n)
		}
	})

	t.Run("cancelled context stops the crawl", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(&fakeSite{})
		t.Cleanup(srv.Close)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		h := newHarness(t, srv.URL, 50)
		if err := h.engine.Run(ctx, []string{srv.URL + "/"}); !errors.Is(err, context.Canceled) {
			t.Errorf("Run() error = %v, want context.Canceled", err)
		}
	})

	t.Run("requires a seed", func(t *testing.T) {
		t.Parallel()

		h := newHarness(t, "http://127.0.0.1:1", 50)
		if err := h.engine.Run(context.Background(), nil); !errors.Is(err, ErrNoSeeds) {
			t.Errorf("Run() error = %v, want ErrNoSeeds", err)
		}
	})
}
