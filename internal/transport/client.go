package transport

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"github.com/nao1215/afscrawler/internal/model"
	"github.com/nao1215/afscrawler/internal/session"
)

const (
	// DefaultTimeout bounds a single fetch including redirects and body read.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxBodySize is the decoded body limit (10 MB).
	DefaultMaxBodySize int64 = 10 * 1024 * 1024

	maxRedirects = 10
)

// Client fetches crawl requests. It is safe for concurrent use.
type Client struct {
	profile     Profile
	headers     map[string]string
	timeout     time.Duration
	maxBodySize int64
	additional  []int
	ignored     []int
	proxyURLs   []string
	logger      *slog.Logger

	direct  *resty.Client
	rotator *ProxyRotator
	proxied map[string]*resty.Client
}

// Option configures a Client.
type Option func(*Client)

// WithProfile sets the impersonation profile, usually obtained from LookupProfile.
func WithProfile(p Profile) Option {
	return func(c *Client) {
		c.profile = p
	}
}

// WithHeaders overrides individual profile headers.
func WithHeaders(headers map[string]string) Option {
	return func(c *Client) {
		c.headers = maps.Clone(headers)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithMaxBodySize sets the decoded body size limit in bytes.
func WithMaxBodySize(n int64) Option {
	return func(c *Client) {
		c.maxBodySize = n
	}
}

// WithErrorStatusCodes sets status codes that fail the fetch in addition to
// 5xx, and codes that never fail it.
func WithErrorStatusCodes(additional, ignored []int) Option {
	return func(c *Client) {
		c.additional = slices.Clone(additional)
		c.ignored = slices.Clone(ignored)
	}
}

// WithProxyURLs routes requests through the given proxies.
func WithProxyURLs(urls []string) Option {
	return func(c *Client) {
		c.proxyURLs = slices.Clone(urls)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client using the chrome124 profile unless another is given.
func NewClient(opts ...Option) (*Client, error) {
	defaultProfile, err := LookupProfile(DefaultProfile)
	if err != nil {
		return nil, err
	}

	c := &Client{
		profile:     defaultProfile,
		timeout:     DefaultTimeout,
		maxBodySize: DefaultMaxBodySize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.direct = c.newResty(newHTTPTransport())

	rotator, err := NewProxyRotator(c.proxyURLs)
	if err != nil {
		return nil, err
	}
	if rotator != nil {
		c.rotator = rotator
		c.proxied = make(map[string]*resty.Client, len(rotator.Proxies()))
		for _, u := range rotator.Proxies() {
			tr := newHTTPTransport()
			if err := configureProxy(tr, u); err != nil {
				return nil, err
			}
			c.proxied[u.String()] = c.newResty(tr)
			c.logger.Debug("proxy configured", "proxy", u.Redacted())
		}
	}

	return c, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		// Bodies are decoded in decodeBody so brotli and zstd work too
		DisableCompression: true,
	}
}

func (c *Client) newResty(tr *http.Transport) *resty.Client {
	var rt http.RoundTripper = tr
	if c.profile.TLSFingerprint {
		rt = cloudflarebp.AddCloudFlareByPass(rt)
	}

	rc := resty.NewWithClient(&http.Client{Transport: rt})
	rc.SetTimeout(c.timeout)
	rc.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirects))
	rc.SetLogger(restyLogger{logger: c.logger})

	headers := maps.Clone(c.profile.Headers)
	if headers == nil {
		headers = map[string]string{}
	}
	maps.Copy(headers, c.headers)
	rc.SetHeaders(headers)
	return rc
}

// Profile returns the active impersonation profile.
func (c *Client) Profile() Profile {
	return c.profile
}

// Fetch performs one GET for req. Cookies are read from and written back to
// sess when it is non-nil. A response whose status is treated as a failure
// is returned together with a *StatusError.
func (c *Client) Fetch(ctx context.Context, req model.CrawlRequest, sess *session.Session) (*model.RawResponse, error) {
	target, err := url.Parse(req.URL())
	if err != nil {
		return nil, fmt.Errorf("parse request URL: %w", err)
	}

	r := c.clientFor(sess).R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if sess != nil {
		r.SetCookies(sess.Cookies(target))
	}

	resp, err := r.Get(req.URL())
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL(), err)
	}
	raw := resp.RawResponse
	defer raw.Body.Close()

	finalURL := target
	if raw.Request != nil && raw.Request.URL != nil {
		finalURL = raw.Request.URL
	}
	if sess != nil {
		sess.SetCookies(finalURL, raw.Cookies())
	}

	body, err := decodeBody(raw.Body, raw.Header.Get("Content-Encoding"), c.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", req.URL(), err)
	}

	out := &model.RawResponse{
		URL:        finalURL.String(),
		StatusCode: raw.StatusCode,
		Header:     raw.Header.Clone(),
		Body:       body,
	}

	c.logger.Debug("fetched",
		"url", req.URL(),
		"status", out.StatusCode,
		"bytes", len(body),
		"elapsed", resp.Time(),
	)

	if c.isErrorStatus(out.StatusCode) {
		return out, &StatusError{StatusCode: out.StatusCode, URL: req.URL()}
	}
	return out, nil
}

func (c *Client) clientFor(sess *session.Session) *resty.Client {
	if c.rotator == nil {
		return c.direct
	}
	id := ""
	if sess != nil {
		id = sess.ID()
	}
	return c.proxied[c.rotator.ProxyFor(id).String()]
}

func (c *Client) isErrorStatus(code int) bool {
	if slices.Contains(c.ignored, code) {
		return false
	}
	return code >= http.StatusInternalServerError || slices.Contains(c.additional, code)
}

// restyLogger forwards resty's printf-style logging to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "resty")
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "resty")
}
