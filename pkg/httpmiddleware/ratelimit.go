package httpmiddleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the maximum number of requests allowed per window.
	Max int
	// Window is the duration of each sliding window.
	Window time.Duration
	// KeyFunc extracts the rate limit key from a request. If nil, or if it
	// returns "", the client IP address is used.
	KeyFunc func(*http.Request) string
	// Methods restricts limiting to the listed HTTP methods. Requests with
	// other methods pass through untouched. Empty means every method.
	Methods []string
}

// counter holds hits for the current fixed window (slot) and the one before
// it. Slots are aligned to multiples of the window since the unix epoch.
type counter struct {
	slot int64
	curr int
	prev int
}

// verdict is the outcome of one rate limit decision.
type verdict struct {
	allowed   bool
	remaining int
	reset     time.Time
}

type limiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu       sync.Mutex
	counters map[string]*counter
}

func newLimiter(cfg RateLimitConfig) *limiter {
	return &limiter{
		cfg:      cfg,
		now:      time.Now,
		counters: make(map[string]*counter),
	}
}

func (l *limiter) slotOf(t time.Time) int64 {
	return t.UnixNano() / int64(l.cfg.Window)
}

// decide records a hit for key unless it would exceed the limit. The
// previous window's hits are weighted by how much of it the sliding window
// still covers.
func (l *limiter) decide(key string, now time.Time) verdict {
	slot := l.slotOf(now)
	slotStart := time.Unix(0, slot*int64(l.cfg.Window))
	v := verdict{reset: slotStart.Add(l.cfg.Window)}

	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.counters[key]
	switch {
	case !ok:
		c = &counter{slot: slot}
		l.counters[key] = c
	case c.slot == slot-1:
		c.slot, c.prev, c.curr = slot, c.curr, 0
	case c.slot < slot-1:
		c.slot, c.prev, c.curr = slot, 0, 0
	}

	covered := 1 - float64(now.Sub(slotStart))/float64(l.cfg.Window)
	estimate := float64(c.prev)*covered + float64(c.curr)
	if estimate >= float64(l.cfg.Max) {
		return v
	}

	c.curr++
	v.allowed = true
	v.remaining = max(int(float64(l.cfg.Max)-estimate-1), 0)
	return v
}

// evict drops counters whose both windows are over.
func (l *limiter) evict(now time.Time) int {
	slot := l.slotOf(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for key, c := range l.counters {
		if c.slot < slot-1 {
			delete(l.counters, key)
			n++
		}
	}
	return n
}

func (l *limiter) runEviction(ctx context.Context) {
	ticker := time.NewTicker(2 * l.cfg.Window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			l.evict(now)
		}
	}
}

func (l *limiter) applies(r *http.Request) bool {
	return len(l.cfg.Methods) == 0 || slices.Contains(l.cfg.Methods, r.Method)
}

func (l *limiter) key(r *http.Request) string {
	if l.cfg.KeyFunc != nil {
		if k := l.cfg.KeyFunc(r); k != "" {
			return k
		}
	}
	return clientIP(r)
}

// RateLimit returns a middleware that enforces a per-key sliding window rate
// limit. Limited requests get X-RateLimit-* headers; rejected ones get 429
// with Retry-After.
//
// Counters are never evicted; use RateLimitWithCleanup in long-running
// servers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newLimiter(cfg).middleware
}

// RateLimitWithCleanup is like RateLimit but evicts stale counters every two
// windows until ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	l := newLimiter(cfg)
	go l.runEviction(ctx)
	return l.middleware
}

func (l *limiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.applies(r) {
			next.ServeHTTP(w, r)
			return
		}

		now := l.now()
		v := l.decide(l.key(r), now)

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(l.cfg.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(v.remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(v.reset.Unix(), 10))

		if !v.allowed {
			wait := max(v.reset.Sub(now), 0)
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, r, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// clientIP returns the first X-Forwarded-For hop, then X-Real-IP, then the
// host part of RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
