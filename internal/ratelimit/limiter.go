// Package ratelimit implements the per-backend adaptive rate limiter:
// a token bucket behind an atomic swap slot, with multiplicative
// backoff on throttling and time-based recovery.
package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// MaxSlowdownFactor is the ceiling for the adaptive slowdown factor.
const MaxSlowdownFactor = 16

// RecoveryWindow is how long a backend must go without a throttle
// response before its slowdown factor resets to 1.
const RecoveryWindow = 30 * time.Second

// Limiter is one backend's adaptive token-bucket limiter. It is safe
// for concurrent use, though in practice exactly one drainer goroutine
// acquires from any given Limiter.
type Limiter struct {
	baseRate rate.Limit
	burst    int

	current atomic.Pointer[rate.Limiter]

	mu              sync.Mutex
	slowdownFactor  int
	lastThrottle    time.Time
	hasThrottled    bool
}

// New creates a Limiter with the given base requests-per-second rate
// and burst size.
func New(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}
	l := &Limiter{
		baseRate:       rate.Limit(requestsPerSecond),
		burst:          burst,
		slowdownFactor: 1,
	}
	l.current.Store(rate.NewLimiter(l.baseRate, burst))
	return l
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.current.Load().Wait(ctx)
}

// Allow reports whether a token is available right now, without
// blocking or consuming a token on failure.
func (l *Limiter) Allow() bool {
	return l.current.Load().Allow()
}

// Throttled records a rate-limited response: the slowdown factor is
// doubled (capped at MaxSlowdownFactor) and a new limiter running at
// base_rate/factor is atomically swapped in. Returns the new factor.
func (l *Limiter) Throttled() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.slowdownFactor < MaxSlowdownFactor {
		l.slowdownFactor *= 2
		if l.slowdownFactor > MaxSlowdownFactor {
			l.slowdownFactor = MaxSlowdownFactor
		}
	}
	l.lastThrottle = time.Now()
	l.hasThrottled = true

	newRate := l.baseRate / rate.Limit(l.slowdownFactor)
	l.current.Store(rate.NewLimiter(newRate, l.burst))
	return l.slowdownFactor
}

// Succeeded records a successful query. If the backend has gone
// RecoveryWindow since its last throttle and is currently slowed
// down, the limiter resets to factor 1.
func (l *Limiter) Succeeded() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.slowdownFactor <= 1 || !l.hasThrottled {
		return
	}
	if time.Since(l.lastThrottle) < RecoveryWindow {
		return
	}
	l.slowdownFactor = 1
	l.current.Store(rate.NewLimiter(l.baseRate, l.burst))
}

// Factor returns the current slowdown factor (for tests/metrics).
func (l *Limiter) Factor() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.slowdownFactor
}

// Registry holds one Limiter per backend name.
type Registry struct {
	mu       sync.RWMutex
	limiters map[string]*Limiter
}

// NewRegistry constructs an empty Registry.
func NewRegistry() *Registry {
	return &Registry{limiters: make(map[string]*Limiter)}
}

// Set installs (or replaces) the limiter for a backend.
func (r *Registry) Set(backend string, requestsPerSecond float64, burst int) *Limiter {
	l := New(requestsPerSecond, burst)
	r.mu.Lock()
	r.limiters[backend] = l
	r.mu.Unlock()
	return l
}

// Get returns the limiter registered for backend, or nil.
func (r *Registry) Get(backend string) *Limiter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.limiters[backend]
}

// DefaultBaseRates mirrors the per-backend politeness ceilings used
// when API credentials are absent.
var DefaultBaseRates = map[string]float64{
	"CrossRef":        1,
	"arXiv":           3,
	"DBLP":            1,
	"Semantic Scholar": 1.0 / 3,
	"Europe PMC":      2,
	"PubMed":          3,
	"ACL Anthology":   2,
	"OpenAlex":        10,
	"DOI Resolver":    3,
}

// CrossRefMailtoRate is CrossRef's politeness-pool rate when a mailto
// address is configured.
const CrossRefMailtoRate = 3

// SemanticScholarKeyedRate is Semantic Scholar's rate when an API key
// is configured.
const SemanticScholarKeyedRate = 1
