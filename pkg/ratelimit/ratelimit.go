package ratelimit

import (
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm for rate limiting
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64     // Maximum number of tokens
	tokens     int64     // Current number of tokens
	refillRate int64     // Tokens added per second
	lastRefill time.Time // Last refill timestamp
}

// NewTokenBucket creates a new token bucket
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: time.Now(),
	}
}

// Allow checks if a request is allowed and consumes a token if so
func (tb *TokenBucket) Allow() bool {
	return tb.AllowN(1)
}

// AllowN checks if n requests are allowed and consumes n tokens if so
func (tb *TokenBucket) AllowN(n int64) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()

	if tb.tokens >= n {
		tb.tokens -= n
		return true
	}

	return false
}

// Remaining returns the number of tokens currently available
func (tb *TokenBucket) Remaining() int64 {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	return tb.tokens
}

// refill adds tokens based on elapsed time
func (tb *TokenBucket) refill() {
	now := time.Now()
	elapsed := now.Sub(tb.lastRefill)

	tokensToAdd := int64(elapsed.Seconds()) * tb.refillRate

	if tokensToAdd > 0 {
		tb.tokens += tokensToAdd
		if tb.tokens > tb.capacity {
			tb.tokens = tb.capacity
		}
		tb.lastRefill = now
	}
}

// RateLimiter manages rate limits for multiple keys (e.g., player IDs, IP addresses).
// Used to keep a single client from hammering the enqueue endpoint.
type RateLimiter struct {
	mu              sync.RWMutex
	buckets         map[string]*TokenBucket
	capacity        int64
	refillRate      int64
	cleanupInterval time.Duration
	lastSeen        map[string]time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(capacity, refillRate int64) *RateLimiter {
	rl := &RateLimiter{
		buckets:         make(map[string]*TokenBucket),
		lastSeen:        make(map[string]time.Time),
		capacity:        capacity,
		refillRate:      refillRate,
		cleanupInterval: 10 * time.Minute,
	}

	// Start background cleanup
	go rl.cleanupLoop()

	return rl
}

// Allow checks if a request from the given key is allowed
func (rl *RateLimiter) Allow(key string) bool {
	return rl.AllowN(key, 1)
}

// AllowN checks if n requests from the given key are allowed
func (rl *RateLimiter) AllowN(key string, n int64) bool {
	bucket := rl.getBucket(key)
	return bucket.AllowN(n)
}

// Remaining returns the tokens left for the given key
func (rl *RateLimiter) Remaining(key string) int64 {
	return rl.getBucket(key).Remaining()
}

// getBucket gets or creates a token bucket for the given key
func (rl *RateLimiter) getBucket(key string) *TokenBucket {
	rl.mu.RLock()
	bucket, exists := rl.buckets[key]
	rl.mu.RUnlock()

	if exists {
		rl.touch(key)
		return bucket
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	// Double-check after acquiring write lock
	bucket, exists = rl.buckets[key]
	if exists {
		rl.lastSeen[key] = time.Now()
		return bucket
	}

	bucket = NewTokenBucket(rl.capacity, rl.refillRate)
	rl.buckets[key] = bucket
	rl.lastSeen[key] = time.Now()
	return bucket
}

func (rl *RateLimiter) touch(key string) {
	rl.mu.Lock()
	rl.lastSeen[key] = time.Now()
	rl.mu.Unlock()
}

// cleanupLoop periodically drops buckets that have not been used for a while
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.cleanupInterval)

		rl.mu.Lock()
		for key, seen := range rl.lastSeen {
			if seen.Before(cutoff) {
				delete(rl.buckets, key)
				delete(rl.lastSeen, key)
			}
		}
		rl.mu.Unlock()
	}
}
