package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config allows Requests calls per Window for one identifier. The full
// allowance is available as a burst and refills evenly across the window.
type Config struct {
	Requests int
	Window   time.Duration
}

// Result is the answer to one CheckRateLimit call. WaitTime is set only
// when the call was refused.
type Result struct {
	Allowed  bool
	WaitTime time.Duration
}

// WaitTimeMillis is WaitTime rounded up to whole milliseconds.
func (r Result) WaitTimeMillis() int64 {
	ms := r.WaitTime.Milliseconds()
	if r.WaitTime%time.Millisecond != 0 {
		ms++
	}
	return ms
}

// RetryAfterSeconds is WaitTime rounded up to whole seconds, at least 1.
func (r Result) RetryAfterSeconds() int {
	secs := int((r.WaitTime + time.Second - 1) / time.Second)
	return max(secs, 1)
}

// Limiter keeps one token bucket per identifier in process memory. State is
// lost on restart.
type Limiter struct {
	limiters sync.Map // map[string]*rate.Limiter
	rate     rate.Limit
	burst    int
	now      func() time.Time

	mu          sync.Mutex
	lastCleanup time.Time
}

func New(config Config) *Limiter {
	if config.Requests <= 0 {
		config.Requests = 5
	}
	if config.Window <= 0 {
		config.Window = time.Minute
	}

	return &Limiter{
		rate:        rate.Limit(float64(config.Requests) / config.Window.Seconds()),
		burst:       config.Requests,
		now:         time.Now,
		lastCleanup: time.Now(),
	}
}

// SetClock overrides the limiter's time source.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
	l.lastCleanup = now()
}

// CheckRateLimit consumes one token for identifier if one is available.
func (l *Limiter) CheckRateLimit(identifier string) Result {
	now := l.now()
	limiter := l.getLimiter(identifier, now)

	if limiter.AllowN(now, 1) {
		return Result{Allowed: true}
	}

	// Time until the bucket holds one whole token again.
	missing := 1 - limiter.TokensAt(now)
	wait := time.Duration(missing / float64(l.rate) * float64(time.Second))
	if wait < time.Millisecond {
		wait = time.Millisecond
	}

	return Result{Allowed: false, WaitTime: wait}
}

// Reset forgets identifier's history so its next call starts fresh.
func (l *Limiter) Reset(identifier string) {
	l.limiters.Delete(identifier)
}

func (l *Limiter) getLimiter(key string, now time.Time) *rate.Limiter {
	if limiter, ok := l.limiters.Load(key); ok {
		return limiter.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)
	actual, _ := l.limiters.LoadOrStore(key, limiter)

	l.maybeCleanup(now)

	return actual.(*rate.Limiter)
}

// maybeCleanup drops buckets that have refilled completely, which means the
// identifier has been idle for at least a full window.
func (l *Limiter) maybeCleanup(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastCleanup) < 5*time.Minute {
		return
	}
	l.lastCleanup = now

	l.limiters.Range(func(key, value any) bool {
		limiter := value.(*rate.Limiter)
		if limiter.TokensAt(now) >= float64(l.burst) {
			l.limiters.Delete(key)
		}
		return true
	})
}
