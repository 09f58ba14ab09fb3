package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const defaultIdleTTL = 10 * time.Minute

// Limiter keeps one token bucket per client key.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	idleTTL time.Duration
}

type bucket struct {
	limiter *rate.Limiter
	last    time.Time
}

func NewLimiter() *Limiter {
	return &Limiter{buckets: make(map[string]*bucket), idleTTL: defaultIdleTTL}
}

// Allow returns true if the request is allowed, false if rate limited.
func (l *Limiter) Allow(key string, rps float64, burst int, now time.Time) bool {
	if key == "" {
		return true
	}
	if rps <= 0 || burst <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
		l.buckets[key] = b
	}
	if b.limiter.Limit() != rate.Limit(rps) {
		b.limiter.SetLimitAt(now, rate.Limit(rps))
	}
	if b.limiter.Burst() != burst {
		b.limiter.SetBurstAt(now, burst)
	}
	b.last = now

	return b.limiter.AllowN(now, 1)
}

// Prune drops buckets idle for longer than the idle TTL.
func (l *Limiter) Prune(now time.Time) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if now.Sub(b.last) > l.idleTTL {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
