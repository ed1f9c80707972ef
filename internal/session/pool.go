package session

import (
	"log/slog"
	"math/rand/v2"
	"sync"
)

// Pool hands out sessions and replaces retired ones.
// It holds at most size live sessions.
type Pool struct {
	size   int
	opts   Options
	logger *slog.Logger

	mu       sync.Mutex
	sessions []*Session
	created  int
	retired  int
	closed   bool
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(logger *slog.Logger) PoolOption {
	return func(p *Pool) {
		p.logger = logger
	}
}

// WithSessionOptions sets the options used for every new session.
func WithSessionOptions(opts Options) PoolOption {
	return func(p *Pool) {
		p.opts = opts
	}
}

// NewPool creates a pool holding at most size sessions.
func NewPool(size int, opts ...PoolOption) (*Pool, error) {
	if size <= 0 {
		return nil, ErrInvalidPoolSize
	}
	p := &Pool{
		size:   size,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Get returns a usable session.
// Retired sessions are evicted first. While the pool is below capacity a new
// session is created, otherwise a random live session is reused.
func (p *Pool) Get() (*Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, ErrPoolClosed
	}

	p.evictLocked()

	if len(p.sessions) < p.size {
		s := New(p.opts)
		p.sessions = append(p.sessions, s)
		p.created++
		p.logger.Debug("session created", "session", s.ID(), "live", len(p.sessions))
		return s, nil
	}

	return p.sessions[rand.IntN(len(p.sessions))], nil //nolint:gosec // session choice needs no cryptographic randomness
}

// Retire retires s and removes it from the pool.
func (p *Pool) Retire(s *Session) {
	if s == nil {
		return
	}
	s.Retire()

	p.mu.Lock()
	defer p.mu.Unlock()
	p.evictLocked()
}

// Close retires every session; later Get calls fail with ErrPoolClosed.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, s := range p.sessions {
		s.Retire()
	}
	p.retired += len(p.sessions)
	p.sessions = nil
	p.closed = true
}

// Stats is a snapshot of pool counters.
type Stats struct {
	Live    int
	Created int
	Retired int
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Live:    len(p.sessions),
		Created: p.created,
		Retired: p.retired,
	}
}

func (p *Pool) evictLocked() {
	live := p.sessions[:0]
	for _, s := range p.sessions {
		if s.IsUsable() {
			live = append(live, s)
			continue
		}
		p.retired++
		p.logger.Debug("session retired", "session", s.ID(), "errorScore", s.ErrorScore(), "usage", s.UsageCount())
	}
	clear(p.sessions[len(live):])
	p.sessions = live
}
