package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
)

const searchTemplate = "/search-results.json?&geo=false&page={page}&country=gb&location={item}"

func TestLinkEnqueuer(t *testing.T) {
	t.Parallel()

	t.Run("fails before the build id is resolved", func(t *testing.T) {
		t.Parallel()

		sub := &recordingSubmitter{}
		err := NewLinkEnqueuer(newRoot(t), sub).EnqueueLinks(context.Background(), LinkSpec{
			PathTemplate: "/property/{item}.json",
			Items:        []string{"1"},
			Label:        model.LabelListing,
		})
		if !errors.Is(err, nextdata.ErrUnresolved) {
			t.Errorf("EnqueueLinks() error = %v, want ErrUnresolved", err)
		}
		if len(sub.batches) != 0 {
			t.Error("nothing may be submitted before resolution")
		}
	})

	t.Run("search links bind location and page", func(t *testing.T) {
		t.Parallel()

		root := newRoot(t)
		_ = root.Resolve(testBuildID)
		sub := &recordingSubmitter{}

		err := NewLinkEnqueuer(root, sub).EnqueueLinks(context.Background(), LinkSpec{
			PathTemplate: searchTemplate,
			Items:        []string{"London", "Milton Keynes"},
			Label:        model.LabelSearch,
			UserData:     model.UserData{"page": 1},
		})
		if err != nil {
			t.Fatal(err)
		}
		if len(sub.batches) != 1 || len(sub.batches[0]) != 2 {
			t.Fatalf("batches = %v, want one batch of two", sub.batches)
		}

		base := "https://example.com/_next/data/" + testBuildID
		wantURLs := []string{
			base + "/search-results.json?&geo=false&page=1&country=gb&location=London",
			base + "/search-results.json?&geo=false&page=1&country=gb&location=Milton%20Keynes",
		}
		for i, req := range sub.batches[0] {
			if req.URL() != wantURLs[i] {
				t.Errorf("URL[%d] = %q, want %q", i, req.URL(), wantURLs[i])
			}
			if req.Label() != model.LabelSearch {
				t.Errorf("Label[%d] = %v", i, req.Label())
			}
			ud := req.UserData()
			if loc, _ := ud.String("location"); loc != []string{"London", "Milton Keynes"}[i] {
				t.Errorf("location[%d] = %q", i, loc)
			}
			if page, _ := ud.Int("page"); page != 1 {
				t.Errorf("page[%d] = %d", i, page)
			}
		}
	})

	t.Run("listing links carry no location", func(t *testing.T) {
		t.Parallel()

		root := newRoot(t)
		_ = root.Resolve(testBuildID)
		sub := &recordingSubmitter{}

		err := NewLinkEnqueuer(root, sub).EnqueueLinks(context.Background(), LinkSpec{
			PathTemplate: "/property/{item}.json",
			Items:        []string{"101", "102", "103"},
			Label:        model.LabelListing,
		})
		if err != nil {
			t.Fatal(err)
		}
		reqs := sub.batches[0]
		if len(reqs) != 3 {
			t.Fatalf("got %d requests, want 3", len(reqs))
		}
		if reqs[1].URL() != "https://example.com/_next/data/"+testBuildID+"/property/102.json" {
			t.Errorf("URL = %q", reqs[1].URL())
		}
		if _, ok := reqs[0].UserData().String("location"); ok {
			t.Error("listing request must not carry a location")
		}
	})

	t.Run("no items submits nothing", func(t *testing.T) {
		t.Parallel()

		sub := &recordingSubmitter{}
		if err := NewLinkEnqueuer(newRoot(t), sub).EnqueueLinks(context.Background(), LinkSpec{Label: model.LabelListing}); err != nil {
			t.Fatal(err)
		}
		if len(sub.batches) != 0 {
			t.Error("empty item list must not submit")
		}
	})

	t.Run("unknown placeholder is an error", func(t *testing.T) {
		t.Parallel()

		root := newRoot(t)
		_ = root.Resolve(testBuildID)
		err := NewLinkEnqueuer(root, &recordingSubmitter{}).EnqueueLinks(context.Background(), LinkSpec{
			PathTemplate: searchTemplate,
			Items:        []string{"London"},
			Label:        model.LabelSearch,
		})
		if !errors.Is(err, ErrMissingTemplateValue) {
			t.Errorf("EnqueueLinks() error = %v, want ErrMissingTemplateValue", err)
		}
	})
}
