package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/nao1215/afscrawler/internal/config"
)

const testBuildID = "Zz9Yy8Xx7Ww6Vv5Uu4Tt3"

// newTestSite serves one search page per location with two listings each.
// Property 13 always answers 500 and /maintenance is HTML without a build id.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	listings := map[string][]int{"London": {11, 12}, "Leeds": {13, 14}}
	prefix := "/_next/data/" + testBuildID

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprintf(w, `<html><script id="__NEXT_DATA__">{"props":{},"buildId":"%s"}</script></html>`, testBuildID)

		case r.URL.Path == "/maintenance":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><body>Back soon</body></html>`)

		case r.URL.Path == prefix+"/search-results.json":
			var results []string
			for _, id := range listings[r.URL.Query().Get("location")] {
				results = append(results, fmt.Sprintf(`{"property":{"id":%d}}`, id))
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"pageProps":{"initialPageCount":1,"initialListings":{"groups":[{"results":[%s]}]}}}`,
				strings.Join(results, ","))

		case strings.HasPrefix(r.URL.Path, prefix+"/property/"):
			id, _ := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, prefix+"/property/"), ".json"))
			if id == 13 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"pageProps":{"viewModel":{"propertyDetails":{"id":%d,"propertyType":"Flat",`+
				`"address":{"city":"City %d"},"rooms":[{}],"terms":{"rentPpw":{"value":%d}}}}}}`, id, id, 100+id)

		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

// testConfig points a default config at srv and a temporary storage directory.
func testConfig(t *testing.T, srvURL string) *config.Config {
	t.Helper()

	cfg := config.NewConfig()
	cfg.StartURL = srvURL + "/"
	cfg.APIRoot = srvURL + "/_next/data/{build_id}"
	cfg.TargetLocations = []string{"London", "Leeds"}
	cfg.Profile = "none"
	cfg.StorageDir = t.TempDir()
	cfg.MaxRequestRetries = 1
	return cfg
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
