// ratelimit.go - Per-caller token-bucket rate limiting for mutating requests.

package server

import (
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
}

// callerLimiter keeps one token bucket per caller identity. Buckets refill
// refillRate tokens per second up to maxTokens.
type callerLimiter struct {
	mu         sync.Mutex
	buckets    map[string]*bucket
	maxTokens  int
	refillRate int
	now        func() time.Time
}

func newCallerLimiter(maxTokens, refillRate int) *callerLimiter {
	if refillRate <= 0 {
		refillRate = 1
	}
	return &callerLimiter{
		buckets:    make(map[string]*bucket),
		maxTokens:  maxTokens,
		refillRate: refillRate,
		now:        time.Now,
	}
}

func (l *callerLimiter) allow(caller string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[caller]
	now := l.now()
	if !ok {
		b = &bucket{tokens: l.maxTokens, lastRefill: now}
		l.buckets[caller] = b
	}

	elapsed := now.Sub(b.lastRefill)
	if refill := int(elapsed.Seconds()) * l.refillRate; refill > 0 {
		b.tokens += refill
		if b.tokens > l.maxTokens {
			b.tokens = l.maxTokens
		}
		b.lastRefill = now
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}
