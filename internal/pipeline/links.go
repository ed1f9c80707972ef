package pipeline

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/nextdata"
)

// itemKey is the template placeholder bound to each enqueued item.
const itemKey = "item"

// locationKey is the user data key a SEARCH request stores its location under.
const locationKey = "location"

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Submitter accepts new requests for scheduling.
type Submitter interface {
	AddRequests(ctx context.Context, reqs []model.CrawlRequest) error
}

// LinkSpec describes a batch of follow-up requests.
type LinkSpec struct {
	// PathTemplate is appended to the API root, e.g. "/property/{item}.json".
	// It may reference {item} and any key of UserData.
	PathTemplate string

	// Items produce one request each.
	Items []string

	// Label is the handler label of the new requests.
	Label model.Label

	// UserData is copied into every new request.
	UserData model.UserData
}

// LinkEnqueuer builds follow-up requests against the resolved API root.
type LinkEnqueuer struct {
	root      *nextdata.APIRoot
	submitter Submitter
}

// NewLinkEnqueuer returns an enqueuer bound to root and submitter.
func NewLinkEnqueuer(root *nextdata.APIRoot, submitter Submitter) *LinkEnqueuer {
	return &LinkEnqueuer{root: root, submitter: submitter}
}

// EnqueueLinks creates one request per item and submits them in a single batch.
// For SEARCH requests the item is also stored as the location.
// It fails with nextdata.ErrUnresolved when the build identifier is unknown.
func (e *LinkEnqueuer) EnqueueLinks(ctx context.Context, spec LinkSpec) error {
	if len(spec.Items) == 0 {
		return nil
	}

	base, err := e.root.Base()
	if err != nil {
		return err
	}

	reqs := make([]model.CrawlRequest, 0, len(spec.Items))
	for _, item := range spec.Items {
		path, err := formatPath(spec.PathTemplate, item, spec.UserData)
		if err != nil {
			return err
		}

		userData := spec.UserData.Clone()
		if spec.Label == model.LabelSearch {
			userData[locationKey] = item
		}

		req, err := model.NewCrawlRequest(base+path, spec.Label, userData)
		if err != nil {
			return fmt.Errorf("build %s request for %q: %w", spec.Label, item, err)
		}
		reqs = append(reqs, req)
	}

	return e.submitter.AddRequests(ctx, reqs)
}

// formatPath substitutes {item} and user data keys into template.
// Substituted values are query-escaped with spaces as %20.
func formatPath(template, item string, userData model.UserData) (string, error) {
	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		var (
			value string
			ok    bool
		)
		if name == itemKey {
			value, ok = item, true
		} else {
			value, ok = userData.String(name)
		}
		if !ok {
			missing = append(missing, name)
			return m
		}
		return escapeValue(value)
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("%w: %s in %q", ErrMissingTemplateValue, strings.Join(missing, ", "), template)
	}
	return out, nil
}

func escapeValue(v string) string {
	return strings.ReplaceAll(url.QueryEscape(v), "+", "%20")
}
