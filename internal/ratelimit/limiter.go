// Package ratelimit implements the per-caller question quota: a sliding
// window over the timestamps of past requests. State lives in memory;
// a restart resets all quotas.
package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

// sweepInterval is how often the fingerprint map is scanned for entries
// whose every timestamp expired.
const sweepInterval = 5 * time.Minute

// Decision is the outcome of a quota check.
type Decision struct {
	// Allowed reports whether the caller may ask another question.
	Allowed bool

	// Remaining is the number of questions left in the window. Zero when
	// limited.
	Remaining int

	// RetryIn is how long until the oldest counted request leaves the
	// window. Zero when allowed.
	RetryIn time.Duration

	// Message is the caller-facing warning, set only when limited.
	Message string
}

// record holds one fingerprint's request timestamps behind its own lock,
// so callers with different fingerprints never contend.
type record struct {
	mu    sync.Mutex
	times []time.Time

	// gone marks a record the sweep removed from the map. A writer still
	// holding a pointer to it must re-fetch instead of appending.
	gone bool
}

// prune drops expired timestamps, keeping the rest oldest first.
// Callers must hold r.mu.
func (r *record) prune(now time.Time, window time.Duration) {
	live := r.times[:0]
	for _, ts := range r.times {
		if now.Sub(ts) < window {
			live = append(live, ts)
		}
	}
	r.times = live
}

// Limiter tracks request timestamps per caller fingerprint.
//
// Limiter is safe for concurrent use by multiple goroutines. The map of
// fingerprints is guarded by a lock held only for entry lookup; each
// entry carries its own lock, so checks for distinct fingerprints
// proceed in parallel.
type Limiter struct {
	window time.Duration
	quota  int
	now    func() time.Time

	mu        sync.Mutex // guards records and lastSweep
	records   map[string]*record
	lastSweep time.Time

	logger *slog.Logger
}

// Option configures a Limiter.
type Option func(*Limiter)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

// New creates a Limiter allowing quota requests per window for each
// fingerprint. A nil logger falls back to slog.Default.
func New(quota int, window time.Duration, logger *slog.Logger, opts ...Option) *Limiter {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Limiter{
		window:  window,
		quota:   quota,
		now:     time.Now,
		records: make(map[string]*record),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.lastSweep = l.now()
	return l
}

// Check reports whether the caller identified by fingerprint may ask
// another question. Expired timestamps are pruned as a side effect.
// Check never consumes quota; pair it with RecordUsage.
func (l *Limiter) Check(fingerprint string) Decision {
	now := l.now()

	r := l.record(fingerprint, now)
	r.mu.Lock()
	defer r.mu.Unlock()

	r.prune(now, l.window)

	if len(r.times) >= l.quota {
		retryIn := l.window - now.Sub(r.times[0])
		l.logger.Debug("quota exhausted", "retry_in", retryIn)
		return Decision{
			RetryIn: retryIn,
			Message: limitMessage(retryIn),
		}
	}

	return Decision{
		Allowed:   true,
		Remaining: l.quota - len(r.times),
	}
}

// RecordUsage charges one request against the fingerprint's quota.
// It is called on generation teardown regardless of outcome, so failed
// or abandoned generations still count.
func (l *Limiter) RecordUsage(fingerprint string) {
	now := l.now()

	for {
		r := l.record(fingerprint, now)
		r.mu.Lock()
		if r.gone {
			// Swept out between lookup and lock; an append here would be
			// lost. Fetch the fresh entry.
			r.mu.Unlock()
			continue
		}
		r.prune(now, l.window)
		r.times = append(r.times, now)
		r.mu.Unlock()
		return
	}
}

// record returns the entry for fingerprint, creating it when absent.
// Stale fingerprints are swept out at most once per sweepInterval so the
// map does not grow with one-off visitors.
func (l *Limiter) record(fingerprint string, now time.Time) *record {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) >= sweepInterval {
		l.sweep(now)
		l.lastSweep = now
	}

	r, ok := l.records[fingerprint]
	if !ok {
		r = &record{}
		l.records[fingerprint] = r
	}
	return r
}

// sweep removes fingerprints whose every timestamp expired. Callers must
// hold l.mu. Taking entry locks here keeps a single lock order, because
// no caller acquires l.mu while holding an entry lock.
func (l *Limiter) sweep(now time.Time) {
	for fp, r := range l.records {
		r.mu.Lock()
		r.prune(now, l.window)
		if len(r.times) == 0 {
			r.gone = true
			delete(l.records, fp)
		}
		r.mu.Unlock()
	}
}
