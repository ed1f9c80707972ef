package model

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// requestIDLength is the number of hex characters kept from the unique key digest.
const requestIDLength = 16

// ErrInvalidRequestURL is returned when a request URL is not an absolute http(s) URL.
var ErrInvalidRequestURL = errors.New("request URL must be an absolute http or https URL")

// UserData is the arbitrary metadata attached to a request, such as the
// search page number or the location being paginated.
type UserData map[string]any

// Clone returns a shallow copy of the user data.
// A nil receiver yields an empty, non-nil map.
func (u UserData) Clone() UserData {
	out := make(UserData, len(u))
	maps.Copy(out, u)
	return out
}

// String returns the value stored under key as a string.
// Numbers are formatted in their shortest decimal form.
func (u UserData) String(key string) (string, bool) {
	v, ok := u[key]
	if !ok || v == nil {
		return "", false
	}
	switch val := v.(type) {
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	case int:
		return strconv.Itoa(val), true
	case int64:
		return strconv.FormatInt(val, 10), true
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	default:
		return fmt.Sprint(val), true
	}
}

// Int returns the value stored under key as an int.
// It accepts the integer shapes produced by Go code and by JSON decoding.
func (u UserData) Int(key string) (int, bool) {
	switch val := u[key].(type) {
	case int:
		return val, true
	case int64:
		return int(val), true
	case float64:
		if val != float64(int(val)) {
			return 0, false
		}
		return int(val), true
	case json.Number:
		n, err := val.Int64()
		if err != nil {
			return 0, false
		}
		return int(n), true
	case string:
		n, err := strconv.Atoi(val)
		if err != nil {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

// CrawlRequest is a single unit of work for the request queue.
// It is immutable once constructed: accessors return copies of mutable state.
type CrawlRequest struct {
	url       string
	label     Label
	userData  UserData
	uniqueKey string
	id        string
}

// NewCrawlRequest creates a request for rawURL with the given label and user data.
// The user data is copied, so later changes by the caller are not observed.
func NewCrawlRequest(rawURL string, label Label, userData UserData) (CrawlRequest, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return CrawlRequest{}, fmt.Errorf("%w: %v", ErrInvalidRequestURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return CrawlRequest{}, fmt.Errorf("%w: %q", ErrInvalidRequestURL, rawURL)
	}
	if !label.Valid() {
		return CrawlRequest{}, fmt.Errorf("invalid label %s", label)
	}

	key := uniqueKey(u)
	return CrawlRequest{
		url:       u.String(),
		label:     label,
		userData:  userData.Clone(),
		uniqueKey: key,
		id:        requestID(key),
	}, nil
}

// URL returns the absolute request URL.
func (r CrawlRequest) URL() string { return r.url }

// Label returns the handler label of the request.
func (r CrawlRequest) Label() Label { return r.label }

// UserData returns a copy of the request's user data.
func (r CrawlRequest) UserData() UserData { return r.userData.Clone() }

// UniqueKey returns the normalized URL used for de-duplication.
func (r CrawlRequest) UniqueKey() string { return r.uniqueKey }

// ID returns a short stable identifier derived from the unique key.
func (r CrawlRequest) ID() string { return r.id }

// uniqueKey normalizes a URL for de-duplication.
// Scheme and host are lower-cased, the fragment is dropped, and an empty path
// is treated as "/".
func uniqueKey(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	n.Fragment = ""
	n.RawFragment = ""
	if n.Path == "" {
		n.Path = "/"
	}
	return n.String()
}

func requestID(key string) string {
	sum := blake2b.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])[:requestIDLength]
}
