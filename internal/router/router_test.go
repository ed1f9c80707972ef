package router

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
	"github.com/nao1215/afscrawler/internal/pipeline"
)

const (
	testBuildID = "AbCdEfGhIjKlMnOpQrStU"
	testBase    = "https://example.com/_next/data/" + testBuildID
)

type recordingSubmitter struct {
	mu      sync.Mutex
	batches [][]model.CrawlRequest
}

func (s *recordingSubmitter) AddRequests(_ context.Context, reqs []model.CrawlRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, reqs)
	return nil
}

func (s *recordingSubmitter) all() []model.CrawlRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CrawlRequest
	for _, b := range s.batches {
		out = append(out, b...)
	}
	return out
}

type recordingSink struct {
	records []model.PropertyRecord
}

func (s *recordingSink) PushData(_ context.Context, rec model.PropertyRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newContext builds a classified context for rawURL with an already
// resolved API root.
func newContext(t *testing.T, rawURL string, label model.Label, userData model.UserData, payload string) (*pipeline.Context, *recordingSubmitter) {
	t.Helper()

	req, err := model.NewCrawlRequest(rawURL, label, userData)
	if err != nil {
		t.Fatal(err)
	}
	root, err := nextdata.NewAPIRoot("https://example.com/_next/data/{build_id}")
	if err != nil {
		t.Fatal(err)
	}
	if err := root.Resolve(testBuildID); err != nil {
		t.Fatal(err)
	}

	sub := &recordingSubmitter{}
	pc := pipeline.NewContext(req, nil, discardLogger())
	pc.Links = pipeline.NewLinkEnqueuer(root, sub)
	if payload != "" {
		pc.PageData, err = pipeline.NewPageData([]byte(payload))
		if err != nil {
			t.Fatal(err)
		}
	}
	return pc, sub
}

func searchURL(page, location string) string {
	return testBase + "/search-results.json?&geo=false&page=" + page + "&country=gb&location=" + location
}

func TestRouteRoot(t *testing.T) {
	t.Parallel()

	pc, sub := newContext(t, "https://example.com/", model.LabelRoot, nil, "")
	r := New(&recordingSink{}, WithLogger(discardLogger()))

	if err := r.Route(context.Background(), pc); err != nil {
		t.Fatal(err)
	}

	reqs := sub.all()
	if len(sub.batches) != 1 || len(reqs) != 2 {
		t.Fatalf("got %d batches / %d requests, want 1 / 2", len(sub.batches), len(reqs))
	}
	for i, loc := range []string{"London", "Manchester"} {
		if reqs[i].URL() != searchURL("1", loc) {
			t.Errorf("URL = %q, want %q", reqs[i].URL(), searchURL("1", loc))
		}
		if reqs[i].Label() != model.LabelSearch {
			t.Errorf("label = %v, want SEARCH", reqs[i].Label())
		}
		ud := reqs[i].UserData()
		if page, _ := ud.Int("page"); page != 1 {
			t.Errorf("page = %d, want 1", page)
		}
		if got, _ := ud.String("location"); got != loc {
			t.Errorf("location = %q, want %q", got, loc)
		}
	}
}

func TestRouteSearch(t *testing.T) {
	t.Parallel()

	const page = `{"pageProps":{"initialPageCount":%d,"initialListings":{"groups":[
		{"results":[{"property":{"id":101}},{"advert":{}},{"property":{"id":"102"}}]},
		{"results":[{"property":null},{"property":{"id":103}}]}
	]}}}`

	t.Run("enqueues the next page then every listing", func(t *testing.T) {
		t.Parallel()

		pc, sub := newContext(t, searchURL("1", "London"), model.LabelSearch,
			model.UserData{"page": 1, "location": "London"}, fmt.Sprintf(page, 3))

		if err := New(&recordingSink{}).Route(context.Background(), pc); err != nil {
			t.Fatal(err)
		}

		reqs := sub.all()
		var urls []string
		for _, r := range reqs {
			urls = append(urls, r.URL())
		}
		want := []string{
			searchURL("2", "London"),
			testBase + "/property/101.json",
			testBase + "/property/102.json",
			testBase + "/property/103.json",
		}
		if diff := cmp.Diff(want, urls); diff != "" {
			t.Errorf("enqueued URLs mismatch (-want +got):\n%s", diff)
		}
		if reqs[0].Label() != model.LabelSearch || reqs[1].Label() != model.LabelListing {
			t.Errorf("labels = %v, %v", reqs[0].Label(), reqs[1].Label())
		}
		if loc, _ := reqs[0].UserData().String("location"); loc != "London" {
			t.Errorf("next page location = %q", loc)
		}
	})

	t.Run("last page enqueues no further search", func(t *testing.T) {
		t.Parallel()

		pc, sub := newContext(t, searchURL("3", "London"), model.LabelSearch,
			model.UserData{"page": 3, "location": "London"}, fmt.Sprintf(page, 3))

		if err := New(&recordingSink{}).Route(context.Background(), pc); err != nil {
			t.Fatal(err)
		}
		for _, r := range sub.all() {
			if r.Label() == model.LabelSearch {
				t.Errorf("unexpected search request %q", r.URL())
			}
		}
		if n := len(sub.all()); n != 3 {
			t.Errorf("got %d requests, want 3 listings", n)
		}
	})

	t.Run("page count of zero yields only listings", func(t *testing.T) {
		t.Parallel()

		pc, sub := newContext(t, searchURL("1", "Leeds"), model.LabelSearch,
			model.UserData{"page": 1, "location": "Leeds"},
			`{"pageProps":{"initialPageCount":0,"initialListings":{"groups":[]}}}`)

		if err := New(&recordingSink{}).Route(context.Background(), pc); err != nil {
			t.Fatal(err)
		}
		if len(sub.batches) != 0 {
			t.Errorf("batches = %d, want none", len(sub.batches))
		}
	})

	t.Run("missing page count is an error", func(t *testing.T) {
		t.Parallel()

		pc, _ := newContext(t, searchURL("1", "London"), model.LabelSearch,
			model.UserData{"page": 1, "location": "London"}, `{"pageProps":{}}`)

		if err := New(&recordingSink{}).Route(context.Background(), pc); !errors.Is(err, ErrUnexpectedPayload) {
			t.Errorf("Route() error = %v, want ErrUnexpectedPayload", err)
		}
	})

	t.Run("missing location is an error", func(t *testing.T) {
		t.Parallel()

		pc, _ := newContext(t, searchURL("1", "London"), model.LabelSearch,
			model.UserData{"page": 1}, fmt.Sprintf(page, 1))

		if err := New(&recordingSink{}).Route(context.Background(), pc); !errors.Is(err, ErrMissingUserData) {
			t.Errorf("Route() error = %v, want ErrMissingUserData", err)
		}
	})
}

func TestRouteListing(t *testing.T) {
	t.Parallel()

	ptr := func(s string) *string { return &s }
	f64 := func(f float64) *float64 { return &f }
	yes := true

	t.Run("pushes one complete record", func(t *testing.T) {
		t.Parallel()

		payload := `{"pageProps":{"viewModel":{"propertyDetails":{
			"id":12345,
			"propertyType":"Flat",
			"coordinates":{"lat":51.5,"lng":-0.12},
			"address":{"address1":"1 High St","address2":"Camden","city":"London","postcode":"NW1 1AA"},
			"terms":{"billsIncluded":true,"rentPpw":{"value":250.5}},
			"description":"Bright flat",
			"numberOfBathrooms":2,
			"rooms":[{},{},{}]
		}}}}`
		pc, sub := newContext(t, testBase+"/property/12345.json", model.LabelListing, nil, payload)
		sink := &recordingSink{}

		if err := New(sink).Route(context.Background(), pc); err != nil {
			t.Fatal(err)
		}

		want := []model.PropertyRecord{{
			PropertyID:        "12345",
			PropertyType:      ptr("Flat"),
			LocationLatitude:  f64(51.5),
			LocationLongitude: f64(-0.12),
			Address1:          ptr("1 High St"),
			Address2:          ptr("Camden"),
			City:              ptr("London"),
			Postcode:          ptr("NW1 1AA"),
			BillsIncluded:     &yes,
			Description:       ptr("Bright flat"),
			Bathrooms:         f64(2),
			NumberRooms:       3,
			RentPPW:           f64(250.5),
		}}
		if diff := cmp.Diff(want, sink.records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
		if len(sub.batches) != 0 {
			t.Error("listing handler must not enqueue")
		}
	})

	t.Run("absent optional fields are null", func(t *testing.T) {
		t.Parallel()

		payload := `{"pageProps":{"viewModel":{"propertyDetails":{"id":"9","address":{"city":"Leeds"}}}}}`
		pc, _ := newContext(t, testBase+"/property/9.json", model.LabelListing, nil, payload)
		sink := &recordingSink{}

		if err := New(sink).Route(context.Background(), pc); err != nil {
			t.Fatal(err)
		}

		want := []model.PropertyRecord{{PropertyID: model.StringID("9"), City: ptr("Leeds")}}
		if diff := cmp.Diff(want, sink.records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("property id keeps the JSON type of the source", func(t *testing.T) {
		t.Parallel()

		for _, tt := range []struct {
			id   string
			want string
		}{
			{id: `12345`, want: `"property_id":12345,`},
			{id: `"12345"`, want: `"property_id":"12345",`},
		} {
			payload := `{"pageProps":{"viewModel":{"propertyDetails":{"id":` + tt.id + `,"rooms":[{}]}}}}`
			pc, _ := newContext(t, testBase+"/property/12345.json", model.LabelListing, nil, payload)
			sink := &recordingSink{}

			if err := New(sink).Route(context.Background(), pc); err != nil {
				t.Fatal(err)
			}
			if len(sink.records) != 1 {
				t.Fatalf("expected one record, got %d", len(sink.records))
			}
			out, err := json.Marshal(sink.records[0])
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(out), tt.want) {
				t.Errorf("id %s marshalled as %s, want %s", tt.id, out, tt.want)
			}
		}
	})

	t.Run("fields of an unexpected type are left null", func(t *testing.T) {
		t.Parallel()

		payload := `{"pageProps":{"viewModel":{"propertyDetails":{
			"id":7,
			"propertyType":"Studio",
			"rooms":{"count":2},
			"numberOfBathrooms":"one",
			"address":{"city":"York","postcode":17},
			"terms":{"rentPpw":{"value":"n/a"},"billsIncluded":true}
		}}}}`
		pc, _ := newContext(t, testBase+"/property/7.json", model.LabelListing, nil, payload)
		sink := &recordingSink{}

		if err := New(sink).Route(context.Background(), pc); err != nil {
			t.Fatalf("Route() error = %v", err)
		}

		want := []model.PropertyRecord{{
			PropertyID:    "7",
			PropertyType:  ptr("Studio"),
			City:          ptr("York"),
			BillsIncluded: &yes,
		}}
		if diff := cmp.Diff(want, sink.records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	for _, tt := range []struct {
		name    string
		payload string
	}{
		{name: "missing property details", payload: `{"pageProps":{"viewModel":{}}}`},
		{name: "not found page", payload: `{"notFound":true}`},
		{name: "not found in page props", payload: `{"pageProps":{"notFound":true}}`},
		{name: "property no longer exists", payload: `{"pageProps":{"viewModel":{"propertyDetails":{"id":1,"exists":false}}}}`},
	} {
		t.Run(tt.name+" is skipped without error", func(t *testing.T) {
			t.Parallel()

			pc, _ := newContext(t, testBase+"/property/1.json", model.LabelListing, nil, tt.payload)
			sink := &recordingSink{}

			if err := New(sink).Route(context.Background(), pc); err != nil {
				t.Fatalf("Route() error = %v", err)
			}
			if len(sink.records) != 0 {
				t.Errorf("records = %v, want none", sink.records)
			}
		})
	}
}

func TestRouteErrors(t *testing.T) {
	t.Parallel()

	t.Run("data handler without page data", func(t *testing.T) {
		t.Parallel()

		pc, _ := newContext(t, testBase+"/property/1.json", model.LabelListing, nil, "")
		if err := New(&recordingSink{}).Route(context.Background(), pc); !errors.Is(err, ErrMissingPageData) {
			t.Errorf("Route() error = %v", err)
		}
	})
}
