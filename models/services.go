// sixchan/models/services.go
package models

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// --- Stateful Services ---

// RateLimiter hands out one token bucket per client key (usually an IP).
type RateLimiter struct {
	Mu       sync.RWMutex
	Limiters map[string]*rate.Limiter
	LastSeen map[string]time.Time

	every  time.Duration
	burst  int
	expire time.Duration
	now    func() time.Time
}

// NewRateLimiter creates a limiter allowing burst posts and then one per
// every. Keys idle for longer than expire are dropped every prune interval;
// a zero prune disables the background sweep.
func NewRateLimiter(every time.Duration, burst int, prune, expire time.Duration) *RateLimiter {
	rl := &RateLimiter{
		Limiters: make(map[string]*rate.Limiter),
		LastSeen: make(map[string]time.Time),
		every:    every,
		burst:    burst,
		expire:   expire,
		now:      time.Now,
	}
	if prune > 0 {
		go func() {
			for range time.Tick(prune) {
				rl.Prune()
			}
		}()
	}
	return rl
}

// GetLimiter retrieves or creates a rate limiter for a given key.
func (rl *RateLimiter) GetLimiter(key string) *rate.Limiter {
	rl.Mu.Lock()
	defer rl.Mu.Unlock()
	limiter, exists := rl.Limiters[key]
	if !exists {
		limiter = rate.NewLimiter(rate.Every(rl.every), rl.burst)
		rl.Limiters[key] = limiter
	}
	rl.LastSeen[key] = rl.now()
	return limiter
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	return rl.GetLimiter(key).Allow()
}

// Prune removes keys that have not been seen within the expiry window.
func (rl *RateLimiter) Prune() int {
	rl.Mu.Lock()
	defer rl.Mu.Unlock()
	cutoff := rl.now().Add(-rl.expire)
	removed := 0
	for key, lastSeen := range rl.LastSeen {
		if lastSeen.Before(cutoff) {
			delete(rl.Limiters, key)
			delete(rl.LastSeen, key)
			removed++
		}
	}
	return removed
}
