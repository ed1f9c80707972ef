package config

import (
	"net/url"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "afscrawler"

	// DefaultStartURL is the bootstrap page carrying the Next.js build identifier.
	DefaultStartURL = "https://www.accommodationforstudents.com/"

	// DefaultAPIRoot is the data API root; {build_id} is filled in once the
	// start page has been fetched.
	DefaultAPIRoot = "https://www.accommodationforstudents.com/_next/data/{build_id}"

	// DefaultSearchPath is the search-results endpoint relative to the API root.
	DefaultSearchPath = "/search-results.json?&geo=false&page={page}&country=gb&location={item}"

	// DefaultListingPath is the property endpoint relative to the API root.
	DefaultListingPath = "/property/{item}.json"

	// DefaultMaxRequestsPerCrawl caps the number of accepted requests.
	DefaultMaxRequestsPerCrawl = 50

	// DefaultMaxRequestRetries is how often a failing request is retried.
	DefaultMaxRequestRetries = 3

	// DefaultMaxSessionRotations is how often a blocked request is retried
	// with a fresh session.
	DefaultMaxSessionRotations = 10

	// DefaultConcurrency is the number of requests in flight.
	DefaultConcurrency = 4

	// DefaultProfile is the browser impersonation profile.
	DefaultProfile = "chrome124"

	// DefaultTimeout bounds a single HTTP fetch.
	DefaultTimeout = 30 * time.Second

	// DefaultRequestTimeout bounds fetch, pipeline and handler for one request.
	DefaultRequestTimeout = 60 * time.Second

	// DefaultMaxBodySize limits the decoded response body (10 MB).
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	// DefaultSessionPoolSize is the number of concurrently live sessions.
	DefaultSessionPoolSize = 20

	// DefaultDatasetName names the dataset file.
	DefaultDatasetName = "properties"

	// DefaultStoreName is the key-value store directory for exports.
	DefaultStoreName = "results"
)

// DefaultTargetLocations are the locations searched when none are configured.
var DefaultTargetLocations = []string{"London", "Manchester"}

// DefaultBlockedStatusCodes mark a session as blocked.
var DefaultBlockedStatusCodes = []int{401, 403, 429}

// Config holds all configuration options for a crawl.
// It is populated from defaults, the optional config file and CLI flags,
// in that order of increasing precedence.
type Config struct {
	// StartURL is the seed request. Its HTML carries the build identifier.
	StartURL string

	// APIRoot is the data API root template containing {build_id}.
	APIRoot string

	// SearchPath and ListingPath are appended to the resolved API root.
	SearchPath  string
	ListingPath string

	// TargetLocations are the locations searched from page 1.
	TargetLocations []string

	// MaxRequestsPerCrawl caps accepted unique requests. Zero disables the cap.
	MaxRequestsPerCrawl int

	// MaxRequestRetries is the retry budget for ordinary failures.
	MaxRequestRetries int

	// MaxSessionRotations is the retry budget for blocked responses.
	MaxSessionRotations int

	// Concurrency is the number of requests processed at once.
	Concurrency int

	// RetryOnBlocked turns blocked responses into session rotations.
	RetryOnBlocked bool

	// BlockedStatusCodes are the statuses treated as blocked.
	BlockedStatusCodes []int

	// AdditionalErrorStatusCodes are non-5xx statuses treated as errors.
	AdditionalErrorStatusCodes []int

	// IgnoreErrorStatusCodes are statuses never treated as errors.
	IgnoreErrorStatusCodes []int

	// Profile is the browser impersonation profile name.
	Profile string

	// Headers override profile headers.
	Headers map[string]string

	// Proxies are proxy URLs; each session sticks to one of them.
	Proxies []string

	// Timeout bounds a single HTTP fetch.
	Timeout time.Duration

	// RequestTimeout bounds the whole processing of one request.
	RequestTimeout time.Duration

	// MaxBodySize limits the decoded response body in bytes.
	MaxBodySize int64

	// SessionPoolSize is the number of concurrently live sessions.
	SessionPoolSize int

	// RateLimit is the request rate in requests per second. Zero disables pacing.
	RateLimit float64

	// DatasetName and StoreName determine the export path
	// <StorageDir>/<StoreName>/<DatasetName>.json.
	DatasetName string
	StoreName   string

	// StorageDir is the root for exports and the SQLite database.
	// Defaults to the XDG data directory.
	StorageDir string

	// SaveToDB persists records and request states to SQLite.
	SaveToDB bool

	// JSONOutput prints the records as JSON to stdout after the crawl.
	JSONOutput bool

	// MarkdownOutput prints a Markdown summary to stdout after the crawl.
	MarkdownOutput bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONLog switches the log format to JSON.
	JSONLog bool

	// ConfigFilePath is the explicit configuration file, if any.
	ConfigFilePath string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		StartURL:            DefaultStartURL,
		APIRoot:             DefaultAPIRoot,
		SearchPath:          DefaultSearchPath,
		ListingPath:         DefaultListingPath,
		TargetLocations:     slices.Clone(DefaultTargetLocations),
		MaxRequestsPerCrawl: DefaultMaxRequestsPerCrawl,
		MaxRequestRetries:   DefaultMaxRequestRetries,
		MaxSessionRotations: DefaultMaxSessionRotations,
		Concurrency:         DefaultConcurrency,
		RetryOnBlocked:      true,
		BlockedStatusCodes:  slices.Clone(DefaultBlockedStatusCodes),
		Profile:             DefaultProfile,
		Timeout:             DefaultTimeout,
		RequestTimeout:      DefaultRequestTimeout,
		MaxBodySize:         DefaultMaxBodySize,
		SessionPoolSize:     DefaultSessionPoolSize,
		DatasetName:         DefaultDatasetName,
		StoreName:           DefaultStoreName,
		StorageDir:          XDGDataDir(),
		SaveToDB:            true,
	}
}

// XDGDataDir returns the XDG data directory for afscrawler.
// On Linux: ~/.local/share/afscrawler
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for afscrawler.
// On Linux: ~/.config/afscrawler
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if !isHTTPURL(c.StartURL) {
		return ErrInvalidStartURL
	}
	if !strings.Contains(c.APIRoot, "{build_id}") || !isHTTPURL(strings.ReplaceAll(c.APIRoot, "{build_id}", "x")) {
		return ErrInvalidAPIRoot
	}
	if !strings.Contains(c.SearchPath, "{item}") || !strings.Contains(c.ListingPath, "{item}") {
		return ErrInvalidPathTemplate
	}
	if !slices.ContainsFunc(c.TargetLocations, func(s string) bool { return strings.TrimSpace(s) != "" }) {
		return ErrNoTargetLocations
	}
	if c.MaxRequestsPerCrawl < 0 {
		return ErrInvalidMaxRequests
	}
	if c.MaxRequestRetries < 0 || c.MaxSessionRotations < 0 {
		return ErrInvalidRetries
	}
	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}
	if c.Timeout <= 0 || c.RequestTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}
	if c.SessionPoolSize <= 0 {
		return ErrInvalidPoolSize
	}
	if c.RateLimit < 0 {
		return ErrInvalidRateLimit
	}
	for _, codes := range [][]int{c.BlockedStatusCodes, c.AdditionalErrorStatusCodes, c.IgnoreErrorStatusCodes} {
		for _, code := range codes {
			if code < 100 || code > 599 {
				return ErrInvalidStatusCode
			}
		}
	}
	if c.DatasetName == "" || c.StoreName == "" {
		return ErrEmptyName
	}
	if c.JSONOutput && c.MarkdownOutput {
		return ErrConflictingOutputFormats
	}
	return nil
}

// Locations returns the trimmed, non-empty target locations.
func (c *Config) Locations() []string {
	out := make([]string, 0, len(c.TargetLocations))
	for _, loc := range c.TargetLocations {
		if loc = strings.TrimSpace(loc); loc != "" {
			out = append(out, loc)
		}
	}
	return out
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
