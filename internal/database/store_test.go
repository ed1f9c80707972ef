package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/afscrawler/internal/model"
)

// setupTestStore creates a temporary store for testing.
func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func ptr[T any](v T) *T { return &v }

func mustRequest(t *testing.T, rawURL string, label model.Label, data model.UserData) model.CrawlRequest {
	t.Helper()

	req, err := model.NewCrawlRequest(rawURL, label, data)
	if err != nil {
		t.Fatalf("NewCrawlRequest() error = %v", err)
	}
	return req
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		s, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer s.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if s.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("Path() = %q", s.Path())
		}
	})

	t.Run("missing database without create returns ErrDatabaseNotFound", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("existing database opens without create", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		s, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		if err := s.BeginRun(context.Background(), "run-1"); err != nil {
			t.Fatalf("BeginRun() error = %v", err)
		}
		_ = s.Close()

		reopened, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		defer reopened.Close()

		id, err := reopened.LatestRunID(context.Background())
		if err != nil {
			t.Fatalf("LatestRunID() error = %v", err)
		}
		if id != "run-1" {
			t.Errorf("LatestRunID() = %q, want run-1", id)
		}
	})
}

func TestDefaultOptions(t *testing.T) {
	t.Parallel()

	opts := DefaultOptions()
	if !opts.CreateIfNotExists {
		t.Error("expected CreateIfNotExists to be true")
	}
	if !opts.EnableWAL {
		t.Error("expected EnableWAL to be true")
	}
}

func TestRuns(t *testing.T) {
	t.Parallel()

	t.Run("latest run on empty store", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		if _, err := s.LatestRunID(context.Background()); !errors.Is(err, ErrNoRuns) {
			t.Errorf("expected ErrNoRuns, got %v", err)
		}
	})

	t.Run("empty run ID is rejected", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		if err := s.BeginRun(context.Background(), ""); !errors.Is(err, ErrEmptyRunID) {
			t.Errorf("expected ErrEmptyRunID, got %v", err)
		}
	})

	t.Run("lists runs newest first with counts", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		for _, id := range []string{"a", "b"} {
			if err := s.BeginRun(ctx, id); err != nil {
				t.Fatalf("BeginRun(%s) error = %v", id, err)
			}
		}
		if err := s.SaveProperty(ctx, "a", model.PropertyRecord{PropertyID: "1"}); err != nil {
			t.Fatalf("SaveProperty() error = %v", err)
		}
		if err := s.FinishRun(ctx, "a", RunStatusSucceeded); err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}

		runs, err := s.ListRuns(ctx)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != "b" || runs[0].Status != RunStatusRunning || !runs[0].FinishedAt.IsZero() {
			t.Errorf("unexpected newest run %+v", runs[0])
		}
		if runs[1].ID != "a" || runs[1].Status != RunStatusSucceeded || runs[1].Properties != 1 {
			t.Errorf("unexpected oldest run %+v", runs[1])
		}
		if runs[1].StartedAt.IsZero() || runs[1].FinishedAt.IsZero() {
			t.Error("expected timestamps to be parsed")
		}

		latest, err := s.LatestRunID(ctx)
		if err != nil {
			t.Fatalf("LatestRunID() error = %v", err)
		}
		if latest != "b" {
			t.Errorf("LatestRunID() = %q, want b", latest)
		}
	})
}

func TestProperties(t *testing.T) {
	t.Parallel()

	t.Run("round trips records in insertion order", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		want := []model.PropertyRecord{
			{PropertyID: "20", City: ptr("London"), RentPPW: ptr(180.5), NumberRooms: 2, BillsIncluded: ptr(true)},
			{PropertyID: "10", Description: ptr("Studio near campus")},
		}
		for _, rec := range want {
			if err := s.SaveProperty(ctx, "run", rec); err != nil {
				t.Fatalf("SaveProperty() error = %v", err)
			}
		}

		got, err := s.ListProperties(ctx, "run")
		if err != nil {
			t.Fatalf("ListProperties() error = %v", err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("same property in one run is replaced in place", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		for _, rec := range []model.PropertyRecord{
			{PropertyID: "1", NumberRooms: 1},
			{PropertyID: "2"},
			{PropertyID: "1", NumberRooms: 4},
		} {
			if err := s.SaveProperty(ctx, "run", rec); err != nil {
				t.Fatalf("SaveProperty() error = %v", err)
			}
		}

		got, err := s.ListProperties(ctx, "run")
		if err != nil {
			t.Fatalf("ListProperties() error = %v", err)
		}
		want := []model.PropertyRecord{{PropertyID: "1", NumberRooms: 4}, {PropertyID: "2"}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("runs are isolated", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		if err := s.SaveProperty(ctx, "one", model.PropertyRecord{PropertyID: "1"}); err != nil {
			t.Fatalf("SaveProperty() error = %v", err)
		}

		got, err := s.ListProperties(ctx, "two")
		if err != nil {
			t.Fatalf("ListProperties() error = %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no records, got %d", len(got))
		}
	})

	t.Run("empty run ID is rejected", func(t *testing.T) {
		t.Parallel()

		s := setupTestStore(t)
		err := s.SaveProperty(context.Background(), "", model.PropertyRecord{PropertyID: "1"})
		if !errors.Is(err, ErrEmptyRunID) {
			t.Errorf("expected ErrEmptyRunID, got %v", err)
		}
	})
}

func TestRequests(t *testing.T) {
	t.Parallel()

	t.Run("upserts request state", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		req := mustRequest(t, "https://example.com/_next/data/x/property/1.json", model.LabelListing, model.UserData{"page": 2})

		if err := s.RecordRequest(ctx, "run", req, "pending", 0, ""); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
		if err := s.RecordRequest(ctx, "run", req, "failed", 3, "boom"); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}

		got, err := s.ListRequests(ctx, "run", "")
		if err != nil {
			t.Fatalf("ListRequests() error = %v", err)
		}
		want := []RequestRecord{{
			ID:         req.ID(),
			URL:        req.URL(),
			Label:      model.LabelListing,
			UserData:   model.UserData{"page": float64(2)},
			State:      "failed",
			RetryCount: 3,
			Error:      "boom",
		}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("requests mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects an unknown stored label", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO requests (run_id, id, url, label, state) VALUES ('run', 'x', 'https://example.com/', 'DETAIL', 'failed')`)
		if err != nil {
			t.Fatal(err)
		}

		if _, err := s.ListRequests(ctx, "run", ""); err == nil {
			t.Error("expected error for unknown label")
		}
	})

	t.Run("filters by state", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		handled := mustRequest(t, "https://example.com/a", model.LabelSearch, nil)
		pending := mustRequest(t, "https://example.com/b", model.LabelSearch, nil)
		if err := s.RecordRequest(ctx, "run", handled, "handled", 0, ""); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
		if err := s.RecordRequest(ctx, "run", pending, "pending", 0, ""); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}

		got, err := s.ListRequests(ctx, "run", "pending")
		if err != nil {
			t.Fatalf("ListRequests() error = %v", err)
		}
		if len(got) != 1 || got[0].URL != pending.URL() {
			t.Errorf("unexpected requests %+v", got)
		}
	})

	t.Run("run log binds the run ID", func(t *testing.T) {
		t.Parallel()

		ctx := context.Background()
		s := setupTestStore(t)
		log := s.ForRun("bound")
		if log.RunID() != "bound" {
			t.Errorf("RunID() = %q", log.RunID())
		}

		req := mustRequest(t, "https://example.com/", model.LabelRoot, nil)
		if err := log.RecordRequest(ctx, req, "handled", 1, ""); err != nil {
			t.Fatalf("RecordRequest() error = %v", err)
		}
		if err := log.SaveProperty(ctx, model.PropertyRecord{PropertyID: "9"}); err != nil {
			t.Fatalf("SaveProperty() error = %v", err)
		}

		reqs, err := s.ListRequests(ctx, "bound", "handled")
		if err != nil {
			t.Fatalf("ListRequests() error = %v", err)
		}
		if len(reqs) != 1 || reqs[0].RetryCount != 1 {
			t.Errorf("unexpected requests %+v", reqs)
		}
		recs, err := s.ListProperties(ctx, "bound")
		if err != nil {
			t.Fatalf("ListProperties() error = %v", err)
		}
		if len(recs) != 1 {
			t.Errorf("expected 1 record, got %d", len(recs))
		}
	})
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"sqlite default", "2024-05-01 10:20:30", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"iso with zone", "2024-05-01T10:20:30Z", time.Date(2024, 5, 1, 10, 20, 30, 0, time.UTC)},
		{"empty", "", time.Time{}},
		{"garbage", "not a time", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := parseTimestamp(tt.input); !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
