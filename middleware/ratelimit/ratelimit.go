package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/goliatone/go-router"
	"golang.org/x/time/rate"
)

// Config holds limiter settings
type Config struct {
	// Rate is the refill rate in requests per second
	Rate rate.Limit
	// Burst is the bucket size
	Burst int
	// CleanupInterval is how often idle keys are dropped. Keys idle for
	// twice this long are removed.
	CleanupInterval time.Duration
	// KeyFunc picks the bucket for a request, the client IP by default
	KeyFunc func(router.Context) string
	// Filter skips the limiter when it returns true
	Filter func(router.Context) bool
	// LimitReached answers rejected requests
	LimitReached func(ctx router.Context, retryAfter int) error
}

// DefaultConfig allows 10 requests per minute per client with a burst of 5
func DefaultConfig() Config {
	return Config{
		Rate:            rate.Limit(10.0 / 60.0),
		Burst:           5,
		CleanupInterval: 5 * time.Minute,
	}
}

type clientLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// Limiter keeps one token bucket per key
type Limiter struct {
	config Config

	mu       sync.Mutex
	limiters map[string]*clientLimiter

	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New returns a Limiter and starts its cleanup goroutine. Call Stop to
// release it.
func New(config ...Config) *Limiter {
	cfg := DefaultConfig()
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Rate <= 0 {
		cfg.Rate = DefaultConfig().Rate
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultConfig().Burst
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(ctx router.Context) string { return ctx.IP() }
	}
	if cfg.LimitReached == nil {
		cfg.LimitReached = DefaultLimitReached
	}

	l := &Limiter{
		config:   cfg,
		limiters: make(map[string]*clientLimiter),
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	go l.cleanupLoop()

	return l
}

// Stop ends the cleanup goroutine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}

// Middleware rejects requests once the caller's bucket is empty
func (l *Limiter) Middleware() router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if l.config.Filter != nil && l.config.Filter(ctx) {
				return next(ctx)
			}

			if !l.Allow(l.config.KeyFunc(ctx)) {
				return l.config.LimitReached(ctx, l.retryAfter())
			}

			return next(ctx)
		}
	}
}

// Allow takes a token from the bucket for key
func (l *Limiter) Allow(key string) bool {
	return l.limiterFor(key).AllowN(l.now(), 1)
}

// Len returns the number of tracked keys
func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.limiters)
}

func (l *Limiter) limiterFor(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if cl, ok := l.limiters[key]; ok {
		cl.lastAccess = l.now()
		return cl.limiter
	}

	cl := &clientLimiter{
		limiter:    rate.NewLimiter(l.config.Rate, l.config.Burst),
		lastAccess: l.now(),
	}
	l.limiters[key] = cl
	return cl.limiter
}

func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

func (l *Limiter) cleanup() {
	ttl := l.config.CleanupInterval * 2
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for key, cl := range l.limiters {
		if now.Sub(cl.lastAccess) > ttl {
			delete(l.limiters, key)
		}
	}
}

// retryAfter is the number of seconds until one token is refilled
func (l *Limiter) retryAfter() int {
	secs := int(math.Ceil(1.0 / float64(l.config.Rate)))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// DefaultLimitReached answers 429 with a Retry-After header
func DefaultLimitReached(ctx router.Context, retryAfter int) error {
	ctx.SetHeader("Retry-After", strconv.Itoa(retryAfter))
	return ctx.JSON(http.StatusTooManyRequests, map[string]any{
		"error": "too many requests, please try again later",
		"code":  "RATE_LIMITED",
	})
}
