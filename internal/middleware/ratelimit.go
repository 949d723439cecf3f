package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const defaultMaxBuckets = 100000

// RateLimiter is token bucket rate limiting middleware. Authenticated
// requests share one bucket per tenant; anonymous requests are keyed by IP.
type RateLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	rate       float64 // tokens per second
	burst      float64
	maxBuckets int
	now        func() time.Time
}

type bucket struct {
	tokens float64
	last   time.Time
}

// refill adds the tokens earned since the last visit, capped at burst.
func (b *bucket) refill(now time.Time, rate, burst float64) {
	b.tokens = math.Min(burst, b.tokens+now.Sub(b.last).Seconds()*rate)
	b.last = now
}

// NewRateLimiter creates a rate limiter with the given sustained rate
// (requests per second) and burst size.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets:    make(map[string]*bucket),
		rate:       rate,
		burst:      float64(burst),
		maxBuckets: defaultMaxBuckets,
		now:        time.Now,
	}
}

// Handler returns HTTP middleware that enforces rate limiting.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, ok := rl.allow(limitKey(r))

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(int(rl.burst)))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		if !ok {
			h.Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
			h.Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// allow takes one token from the bucket for key. It returns the tokens left
// and, when rejected, how long until the next token.
func (rl *RateLimiter) allow(key string) (remaining int, retryAfter time.Duration, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]
	switch {
	case exists:
		b.refill(now, rl.rate, rl.burst)
	case len(rl.buckets) >= rl.maxBuckets:
		return 0, rl.tokenInterval(1), false
	default:
		b = &bucket{tokens: rl.burst, last: now}
		rl.buckets[key] = b
	}

	if b.tokens < 1 {
		return 0, rl.tokenInterval(1 - b.tokens), false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

func (rl *RateLimiter) tokenInterval(tokens float64) time.Duration {
	return time.Duration(tokens / rl.rate * float64(time.Second))
}

// StartCleanup drops buckets idle for longer than maxIdle every interval.
// The returned func stops the cleanup goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := rl.now().Add(-maxIdle)
	for key, b := range rl.buckets {
		if b.last.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// Len returns the number of tracked buckets.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.buckets)
}

// limitKey selects the bucket for r: the tenant when authenticated,
// otherwise the client IP.
func limitKey(r *http.Request) string {
	if TokenFromContext(r.Context()) != nil {
		return "tenant:" + TenantIDFromContext(r.Context())
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
