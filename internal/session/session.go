package session

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// DefaultBlockedStatusCodes are the statuses that mark a session as blocked.
var DefaultBlockedStatusCodes = []int{
	http.StatusUnauthorized,
	http.StatusForbidden,
	http.StatusTooManyRequests,
}

const (
	// DefaultMaxErrorScore retires a session once its error score reaches it.
	DefaultMaxErrorScore = 3.0

	// DefaultMaxUsageCount retires a session after this many uses.
	DefaultMaxUsageCount = 50

	// errorScoreDecrement is subtracted from the error score on each success.
	errorScoreDecrement = 0.5
)

// Options configures new sessions.
type Options struct {
	// BlockedStatusCodes overrides DefaultBlockedStatusCodes when non-empty.
	BlockedStatusCodes []int

	// MaxErrorScore overrides DefaultMaxErrorScore when positive.
	MaxErrorScore float64

	// MaxUsageCount overrides DefaultMaxUsageCount when positive.
	MaxUsageCount int
}

func (o Options) withDefaults() Options {
	if len(o.BlockedStatusCodes) == 0 {
		o.BlockedStatusCodes = DefaultBlockedStatusCodes
	}
	if o.MaxErrorScore <= 0 {
		o.MaxErrorScore = DefaultMaxErrorScore
	}
	if o.MaxUsageCount <= 0 {
		o.MaxUsageCount = DefaultMaxUsageCount
	}
	return o
}

// Session is one logical browser identity. It is safe for concurrent use.
type Session struct {
	id      string
	jar     http.CookieJar
	blocked []int
	maxErr  float64
	maxUse  int

	mu         sync.Mutex
	usageCount int
	errorScore float64
	retired    bool
}

// New creates a session with a fresh cookie jar.
func New(opts Options) *Session {
	opts = opts.withDefaults()
	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New only fails with invalid options
	return &Session{
		id:      uuid.NewString(),
		jar:     jar,
		blocked: slices.Clone(opts.BlockedStatusCodes),
		maxErr:  opts.MaxErrorScore,
		maxUse:  opts.MaxUsageCount,
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string { return s.id }

// IsBlockedStatusCode reports whether status indicates that this session is blocked.
func (s *Session) IsBlockedStatusCode(status int) bool {
	return slices.Contains(s.blocked, status)
}

// Cookies returns the cookies stored for u.
func (s *Session) Cookies(u *url.URL) []*http.Cookie {
	return s.jar.Cookies(u)
}

// SetCookies stores cookies received from u.
func (s *Session) SetCookies(u *url.URL, cookies []*http.Cookie) {
	if len(cookies) == 0 {
		return
	}
	s.jar.SetCookies(u, cookies)
}

// MarkGood records a successful use and lowers the error score.
func (s *Session) MarkGood() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usageCount++
	s.errorScore = max(0, s.errorScore-errorScoreDecrement)
	s.checkLimitsLocked()
}

// MarkBad records a failed use and raises the error score.
func (s *Session) MarkBad() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usageCount++
	s.errorScore++
	s.checkLimitsLocked()
}

// Retire marks the session as unusable.
func (s *Session) Retire() {
	s.mu.Lock()
	s.retired = true
	s.mu.Unlock()
}

// IsUsable reports whether the session may serve another request.
func (s *Session) IsUsable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.retired
}

// UsageCount returns how many times the session has been marked good or bad.
func (s *Session) UsageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usageCount
}

// ErrorScore returns the current error score.
func (s *Session) ErrorScore() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errorScore
}

func (s *Session) checkLimitsLocked() {
	if s.errorScore >= s.maxErr || s.usageCount >= s.maxUse {
		s.retired = true
	}
}
