package httpapi

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/erauner12/toolbridge-resources/internal/auth"
)

// bucketIdleTTL is how long an unused subject bucket is kept
const bucketIdleTTL = time.Hour

// bucket is a token bucket: Burst tokens at most, refilled continuously at
// MaxRequests per WindowSeconds.
type bucket struct {
	tokens   float64
	lastSeen time.Time
}

// decision is the outcome of one rate limit check
type decision struct {
	allowed   bool
	remaining int
	retry     time.Duration // until the next token, when denied
	reset     time.Time     // when the bucket is full again
}

// RateLimiter tracks one bucket per authenticated subject
type RateLimiter struct {
	capacity float64
	rate     float64 // tokens per second
	now      func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	sweep   time.Time
}

// NewRateLimiter creates a limiter for cfg. cfg.MaxRequests must be positive.
func NewRateLimiter(cfg RateLimitInfo) *RateLimiter {
	return &RateLimiter{
		capacity: float64(cfg.Burst),
		rate:     float64(cfg.MaxRequests) / float64(cfg.WindowSeconds),
		now:      time.Now,
		buckets:  make(map[string]*bucket),
	}
}

// take consumes a token for subject when one is available
func (rl *RateLimiter) take(subject string) decision {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.evictIdle(now)

	b, ok := rl.buckets[subject]
	if !ok {
		b = &bucket{tokens: rl.capacity, lastSeen: now}
		rl.buckets[subject] = b
	}
	b.tokens = math.Min(rl.capacity, b.tokens+now.Sub(b.lastSeen).Seconds()*rl.rate)
	b.lastSeen = now

	d := decision{}
	if b.tokens >= 1 {
		b.tokens--
		d.allowed = true
		d.remaining = int(b.tokens)
	} else {
		d.retry = rl.secondsFor(1 - b.tokens)
	}
	d.reset = now.Add(rl.secondsFor(rl.capacity - b.tokens))
	return d
}

func (rl *RateLimiter) secondsFor(tokens float64) time.Duration {
	return time.Duration(tokens / rl.rate * float64(time.Second))
}

// evictIdle drops buckets unused for bucketIdleTTL, at most every ten minutes
func (rl *RateLimiter) evictIdle(now time.Time) {
	if now.Sub(rl.sweep) < 10*time.Minute {
		return
	}
	rl.sweep = now
	for subject, b := range rl.buckets {
		if now.Sub(b.lastSeen) > bucketIdleTTL {
			delete(rl.buckets, subject)
		}
	}
}

// RateLimitMiddleware limits requests per subject set by auth.Middleware.
// Requests without a subject pass through.
func RateLimitMiddleware(cfg RateLimitInfo) func(http.Handler) http.Handler {
	return rateLimit(cfg, NewRateLimiter(cfg))
}

func rateLimit(cfg RateLimitInfo, limiter *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := auth.Subject(r.Context())
			if subject == "" {
				next.ServeHTTP(w, r)
				return
			}

			d := limiter.take(subject)
			h := w.Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.MaxRequests))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.remaining))
			h.Set("X-RateLimit-Reset", strconv.FormatInt(d.reset.Unix(), 10))
			h.Set("X-RateLimit-Burst", strconv.Itoa(cfg.Burst))

			if !d.allowed {
				retryAfter := max(1, int(math.Ceil(d.retry.Seconds())))
				h.Set("Retry-After", strconv.Itoa(retryAfter))

				log.Ctx(r.Context()).Warn().
					Str("sub", subject).
					Str("path", r.URL.Path).
					Int("retryAfter", retryAfter).
					Msg("Rate limit exceeded")

				writeError(w, r, http.StatusTooManyRequests,
					"Rate limit exceeded. Please retry after "+strconv.Itoa(retryAfter)+" seconds.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
