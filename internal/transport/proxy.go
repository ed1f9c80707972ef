package transport

import (
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/net/proxy"
)

// ProxyRotator assigns proxies to sessions.
// A session always maps to the same proxy, so its cookies never move
// between exit addresses.
type ProxyRotator struct {
	proxies []*url.URL
}

// NewProxyRotator parses and validates the given proxy URLs.
// It returns nil and no error when rawURLs is empty.
func NewProxyRotator(rawURLs []string) (*ProxyRotator, error) {
	if len(rawURLs) == 0 {
		return nil, nil
	}

	r := &ProxyRotator{proxies: make([]*url.URL, 0, len(rawURLs))}
	for _, raw := range rawURLs {
		u, err := parseProxyURL(raw)
		if err != nil {
			return nil, err
		}
		r.proxies = append(r.proxies, u)
	}
	return r, nil
}

func parseProxyURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidProxyURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host in %q", ErrInvalidProxyURL, u.Redacted())
	}
	return u, nil
}

// Proxies returns the configured proxy URLs.
func (r *ProxyRotator) Proxies() []*url.URL {
	if r == nil {
		return nil
	}
	return r.proxies
}

// ProxyFor returns the proxy assigned to sessionID.
// An empty session ID maps to the first proxy.
func (r *ProxyRotator) ProxyFor(sessionID string) *url.URL {
	if r == nil || len(r.proxies) == 0 {
		return nil
	}
	if sessionID == "" {
		return r.proxies[0]
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID)) //nolint:errcheck // hash writes never fail
	return r.proxies[h.Sum32()%uint32(len(r.proxies))] //nolint:gosec // len(proxies) is small
}

// configureProxy routes transport through u.
// HTTP(S) proxies use CONNECT via the transport's Proxy hook; SOCKS5 proxies
// replace the dialer.
func configureProxy(transport *http.Transport, u *url.URL) error {
	switch u.Scheme {
	case "http", "https":
		transport.Proxy = http.ProxyURL(u)
		return nil
	default:
		dialer, err := proxy.FromURL(u, proxy.Direct)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidProxyURL, err)
		}
		cd, ok := dialer.(proxy.ContextDialer)
		if !ok {
			return fmt.Errorf("%w: dialer for %q does not support contexts", ErrInvalidProxyURL, u.Redacted())
		}
		transport.Proxy = nil
		transport.DialContext = cd.DialContext
		return nil
	}
}
