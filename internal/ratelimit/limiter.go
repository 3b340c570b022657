// Package ratelimit provides per-client admission control for HTTP requests
// using a sliding request-log algorithm. It keeps two independent counting
// tables, one keyed by client IP and one by authenticated user ID, each with
// its own per-window limit, and includes HTTP middleware that sets standard
// rate limit response headers.
package ratelimit

import (
	"sync"
	"time"
)

// Info contains rate limit state for populating response headers.
type Info struct {
	Limit      int           // Maximum admits per window
	Remaining  int           // Admits left in the current window
	ResetAt    time.Time     // When the full quota is restored
	RetryAfter time.Duration // How long to wait (meaningful only when denied)
}

// Limiter is the admission-control façade composing one window table per
// key space. The IP and user tables never share counters: the same string
// checked against both tables is counted independently.
//
// A Limiter is an explicitly constructed dependency; callers build one in
// their composition root and pass it to the middleware. It is safe for
// concurrent use.
type Limiter struct {
	ip     *windowTable
	user   *windowTable
	window time.Duration

	mu     sync.Mutex
	done   chan struct{}
	closed bool
}

// Option configures optional Limiter behavior.
type Option func(*options)

type options struct {
	clock         Clock
	sweepInterval time.Duration
}

// WithClock overrides the time source. Intended for tests.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithSweepInterval overrides how often idle keys are evicted from the
// tables. A non-positive interval disables the background sweeper.
func WithSweepInterval(d time.Duration) Option {
	return func(o *options) { o.sweepInterval = d }
}

// New creates a Limiter admitting at most ipLimit requests per window for
// each client IP and userLimit requests per window for each user ID. It
// starts a background goroutine that periodically evicts keys with no
// admissions left in the window; call Close to stop it.
func New(ipLimit, userLimit int, window time.Duration, opts ...Option) *Limiter {
	o := options{
		clock:         systemClock{},
		sweepInterval: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(&o)
	}

	l := &Limiter{
		ip:     newWindowTable(ipLimit, window, o.clock),
		user:   newWindowTable(userLimit, window, o.clock),
		window: window,
		done:   make(chan struct{}),
	}

	if o.sweepInterval > 0 {
		go l.sweepLoop(o.sweepInterval)
	}
	return l
}

// CheckIP decides whether a request from the given client IP may proceed,
// consuming one unit of quota when allowed.
func (l *Limiter) CheckIP(ip string) (bool, Info) {
	return l.check(l.ip, ip)
}

// CheckUser decides whether a request from the given authenticated user may
// proceed, consuming one unit of quota when allowed.
func (l *Limiter) CheckUser(userID string) (bool, Info) {
	return l.check(l.user, userID)
}

// RemainingIP reports the IP table quota left for ip without consuming a slot.
func (l *Limiter) RemainingIP(ip string) int {
	return l.ip.remainingFor(ip)
}

// RemainingUser reports the user table quota left for userID without
// consuming a slot.
func (l *Limiter) RemainingUser(userID string) int {
	return l.user.remainingFor(userID)
}

// Window returns the configured trailing window duration.
func (l *Limiter) Window() time.Duration {
	return l.window
}

func (l *Limiter) check(t *windowTable, key string) (bool, Info) {
	allowed, remaining := t.tryAdmit(key)

	info := Info{
		Limit:     t.limit,
		Remaining: remaining,
		ResetAt:   t.resetAt(key),
	}

	if !allowed {
		// Retry hint: the window duration is always a safe upper bound,
		// but when the key has recorded admissions the age of the oldest
		// one gives an exact time to the next free slot.
		info.RetryAfter = l.window
		if next := t.nextSlotAt(key); !next.IsZero() {
			if wait := next.Sub(t.clock.Now()); wait > 0 && wait < l.window {
				info.RetryAfter = wait
			}
		}
	}

	return allowed, info
}

// Close stops the background sweeper. It is safe to call more than once.
func (l *Limiter) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.done)
	}
}

// sweepLoop periodically evicts idle keys from both tables.
func (l *Limiter) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.ip.sweep()
			l.user.sweep()
		}
	}
}
