package handlers

import (
	"sync"
	"time"
)

// RateLimiter caps inbound messages per sender over a fixed window so one
// noisy sender cannot monopolize the conversation engine. Windows are
// anchored at the sender's first message and dropped once they age out.
type RateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	buckets map[string]*rateBucket
	now     func() time.Time
}

type rateBucket struct {
	count   int
	started time.Time
}

// NewRateLimiter constructs a limiter allowing max messages per window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:     max,
		window:  window,
		buckets: make(map[string]*rateBucket),
		now:     time.Now,
	}
}

// Allow records one message from userID and reports whether it fits in the
// current window.
func (l *RateLimiter) Allow(userID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, bucket := range l.buckets {
		if now.Sub(bucket.started) > l.window {
			delete(l.buckets, id)
		}
	}

	bucket, ok := l.buckets[userID]
	if !ok {
		l.buckets[userID] = &rateBucket{count: 1, started: now}
		return true
	}
	if bucket.count >= l.max {
		return false
	}
	bucket.count++
	return true
}
