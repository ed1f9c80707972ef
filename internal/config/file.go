package config

import "time"

// File represents the structure of the .afscrawler configuration file.
// Every field is optional; unset fields keep the value already in Config.
type File struct {
	StartURL        string   `yaml:"startUrl,omitempty"`
	APIRoot         string   `yaml:"apiRoot,omitempty"`
	SearchPath      string   `yaml:"searchPath,omitempty"`
	ListingPath     string   `yaml:"listingPath,omitempty"`
	TargetLocations []string `yaml:"locations,omitempty"`

	MaxRequestsPerCrawl *int  `yaml:"maxRequestsPerCrawl,omitempty"`
	MaxRequestRetries   *int  `yaml:"maxRequestRetries,omitempty"`
	MaxSessionRotations *int  `yaml:"maxSessionRotations,omitempty"`
	Concurrency         *int  `yaml:"concurrency,omitempty"`
	RetryOnBlocked      *bool `yaml:"retryOnBlocked,omitempty"`

	BlockedStatusCodes         []int `yaml:"blockedStatusCodes,omitempty"`
	AdditionalErrorStatusCodes []int `yaml:"additionalErrorStatusCodes,omitempty"`
	IgnoreErrorStatusCodes     []int `yaml:"ignoreErrorStatusCodes,omitempty"`

	HTTP HTTPFile `yaml:"http,omitempty"`

	RateLimit       *float64 `yaml:"rateLimit,omitempty"`
	SessionPoolSize *int     `yaml:"sessionPoolSize,omitempty"`

	Storage StorageFile `yaml:"storage,omitempty"`
}

// HTTPFile holds the transport settings of the configuration file.
type HTTPFile struct {
	// Profile is the impersonation profile name (chrome124, firefox128, none).
	Profile string `yaml:"profile,omitempty"`

	// Headers override the profile headers.
	Headers map[string]string `yaml:"headers,omitempty"`

	// Proxies are http, https, socks5 or socks5h URLs.
	Proxies []string `yaml:"proxies,omitempty"`

	// Timeout and RequestTimeout use Go duration syntax ("30s").
	Timeout        time.Duration `yaml:"timeout,omitempty"`
	RequestTimeout time.Duration `yaml:"requestTimeout,omitempty"`

	// MaxBodySize is in bytes.
	MaxBodySize int64 `yaml:"maxBodySize,omitempty"`
}

// StorageFile holds the output settings of the configuration file.
type StorageFile struct {
	Dir      string `yaml:"dir,omitempty"`
	Dataset  string `yaml:"dataset,omitempty"`
	Store    string `yaml:"store,omitempty"`
	SaveToDB *bool  `yaml:"saveToDb,omitempty"`
}

// Apply copies every field set in the file onto cfg.
func (f *File) Apply(cfg *Config) {
	setString(&cfg.StartURL, f.StartURL)
	setString(&cfg.APIRoot, f.APIRoot)
	setString(&cfg.SearchPath, f.SearchPath)
	setString(&cfg.ListingPath, f.ListingPath)
	if len(f.TargetLocations) > 0 {
		cfg.TargetLocations = f.TargetLocations
	}

	setPtr(&cfg.MaxRequestsPerCrawl, f.MaxRequestsPerCrawl)
	setPtr(&cfg.MaxRequestRetries, f.MaxRequestRetries)
	setPtr(&cfg.MaxSessionRotations, f.MaxSessionRotations)
	setPtr(&cfg.Concurrency, f.Concurrency)
	setPtr(&cfg.RetryOnBlocked, f.RetryOnBlocked)

	if len(f.BlockedStatusCodes) > 0 {
		cfg.BlockedStatusCodes = f.BlockedStatusCodes
	}
	if len(f.AdditionalErrorStatusCodes) > 0 {
		cfg.AdditionalErrorStatusCodes = f.AdditionalErrorStatusCodes
	}
	if len(f.IgnoreErrorStatusCodes) > 0 {
		cfg.IgnoreErrorStatusCodes = f.IgnoreErrorStatusCodes
	}

	setString(&cfg.Profile, f.HTTP.Profile)
	if len(f.HTTP.Headers) > 0 {
		if cfg.Headers == nil {
			cfg.Headers = make(map[string]string, len(f.HTTP.Headers))
		}
		for k, v := range f.HTTP.Headers {
			cfg.Headers[k] = v
		}
	}
	if len(f.HTTP.Proxies) > 0 {
		cfg.Proxies = f.HTTP.Proxies
	}
	if f.HTTP.Timeout != 0 {
		cfg.Timeout = f.HTTP.Timeout
	}
	if f.HTTP.RequestTimeout != 0 {
		cfg.RequestTimeout = f.HTTP.RequestTimeout
	}
	if f.HTTP.MaxBodySize != 0 {
		cfg.MaxBodySize = f.HTTP.MaxBodySize
	}

	setPtr(&cfg.RateLimit, f.RateLimit)
	setPtr(&cfg.SessionPoolSize, f.SessionPoolSize)

	setString(&cfg.StorageDir, f.Storage.Dir)
	setString(&cfg.DatasetName, f.Storage.Dataset)
	setString(&cfg.StoreName, f.Storage.Store)
	setPtr(&cfg.SaveToDB, f.Storage.SaveToDB)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setPtr[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
