package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	burstLimiterCleanupInterval = 5 * time.Minute
	burstLimiterStaleThreshold  = 10 * time.Minute
)

// burstLimiter implements per-IP request throttling with token buckets.
// It guards against rapid-fire abuse ahead of the 24-hour question quota,
// which only applies once a request reaches the answering pipeline.
// Cleanup of stale entries happens inline during allow() calls.
type burstLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	lastCleanup time.Time
}

// visitor holds a rate limiter and last-seen time for a single IP.
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newBurstLimiter creates a limiter refilling r tokens per second with
// the given burst capacity.
func newBurstLimiter(r float64, burst int) *burstLimiter {
	return &burstLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Limit(r),
		burst:       burst,
		lastCleanup: time.Now(),
	}
}

// allow reports whether a request from the given IP may proceed.
func (bl *burstLimiter) allow(ip string) bool {
	bl.mu.Lock()
	defer bl.mu.Unlock()

	now := time.Now()

	if now.Sub(bl.lastCleanup) > burstLimiterCleanupInterval {
		for k, v := range bl.visitors {
			if now.Sub(v.lastSeen) > burstLimiterStaleThreshold {
				delete(bl.visitors, k)
			}
		}
		bl.lastCleanup = now
	}

	v, exists := bl.visitors[ip]
	if !exists {
		limiter := rate.NewLimiter(bl.limit, bl.burst)
		bl.visitors[ip] = &visitor{
			limiter:  limiter,
			lastSeen: now,
		}
		limiter.Allow()
		return true
	}

	v.lastSeen = now
	return v.limiter.Allow()
}

// burstLimitMiddleware returns middleware that throttles requests per IP.
func burstLimitMiddleware(bl *burstLimiter, trustProxy bool, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := clientIP(r, trustProxy)
			if !bl.allow(ip) {
				logger.Warn("burst limit exceeded",
					"ip", ip,
					"path", r.URL.Path,
					"method", r.Method,
				)
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
