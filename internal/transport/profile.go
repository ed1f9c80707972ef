package transport

import (
	"fmt"
	"maps"
	"slices"
)

// DefaultProfile is the impersonation profile used when none is configured.
const DefaultProfile = "chrome124"

// Profile describes how the client presents itself to the site.
type Profile struct {
	// Name is the registry key, e.g. "chrome124".
	Name string

	// TLSFingerprint enables browser-like TLS cipher suites and curves.
	TLSFingerprint bool

	// Headers are sent with every request made under this profile.
	Headers map[string]string
}

const (
	chromeUserAgent  = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/127.0.0.0 Safari/537.36"
	firefoxUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:128.0) Gecko/20100101 Firefox/128.0"
	browserAccept    = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,image/png,image/svg+xml,*/*;q=0.8"
	acceptEncoding   = "gzip, deflate, br, zstd"
)

var profiles = map[string]Profile{
	"chrome124": {
		Name:           "chrome124",
		TLSFingerprint: true,
		Headers: map[string]string{
			"User-Agent":      chromeUserAgent,
			"Accept":          browserAccept,
			"Accept-Language": "en-US,en;q=0.5",
			"Accept-Encoding": acceptEncoding,
			"Connection":      "keep-alive",
		},
	},
	"firefox128": {
		Name:           "firefox128",
		TLSFingerprint: true,
		Headers: map[string]string{
			"User-Agent":      firefoxUserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.5",
			"Accept-Encoding": acceptEncoding,
			"Connection":      "keep-alive",
		},
	},
	"none": {
		Name: "none",
		Headers: map[string]string{
			"Accept-Encoding": acceptEncoding,
		},
	},
}

// LookupProfile returns the registered profile with the given name.
// The returned profile owns a private copy of its headers.
func LookupProfile(name string) (Profile, error) {
	p, ok := profiles[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownProfile, name, ProfileNames())
	}
	p.Headers = maps.Clone(p.Headers)
	return p, nil
}

// ProfileNames returns the registered profile names in sorted order.
func ProfileNames() []string {
	return slices.Sorted(maps.Keys(profiles))
}
