package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// UserLimiter enforces a per-user token bucket on the send path. Idle
// entries are evicted so the map does not grow with every user ever seen.
type UserLimiter struct {
	mu       sync.Mutex
	limiters map[string]*userEntry
	rps      rate.Limit
	burst    int
}

type userEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewUserLimiter creates a limiter allowing rps events per second with
// the given burst per user, and starts the background eviction loop.
func NewUserLimiter(rps float64, burst int) *UserLimiter {
	l := &UserLimiter{
		limiters: make(map[string]*userEntry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go l.evictLoop()
	return l
}

// Allow reports whether userId may perform one more event now
func (l *UserLimiter) Allow(userId string) bool {
	l.mu.Lock()
	entry, ok := l.limiters[userId]
	if !ok {
		entry = &userEntry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[userId] = entry
	}
	entry.lastSeen = time.Now()
	l.mu.Unlock()

	return entry.limiter.Allow()
}

func (l *UserLimiter) evictLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-10 * time.Minute)
		l.mu.Lock()
		for userId, entry := range l.limiters {
			if entry.lastSeen.Before(cutoff) {
				delete(l.limiters, userId)
			}
		}
		l.mu.Unlock()
	}
}
