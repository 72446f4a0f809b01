package ratelimit

import (
	"testing"
	"time"
)

func TestTokenBucket_Allow(t *testing.T) {
	bucket := NewTokenBucket(5, 1) // 5 capacity, 1 refill per second

	// Should allow first 5 requests
	for i := 0; i < 5; i++ {
		if !bucket.Allow() {
			t.Errorf("Request %d should be allowed", i+1)
		}
	}

	// 6th request should be denied
	if bucket.Allow() {
		t.Error("6th request should be denied")
	}

	// Wait 1 second for refill
	time.Sleep(1100 * time.Millisecond)

	// Should allow 1 more request
	if !bucket.Allow() {
		t.Error("Request after refill should be allowed")
	}
}

func TestTokenBucket_AllowN(t *testing.T) {
	bucket := NewTokenBucket(10, 2) // 10 capacity, 2 refill per second

	if !bucket.AllowN(10) {
		t.Error("AllowN(10) should be allowed")
	}

	if bucket.AllowN(1) {
		t.Error("AllowN(1) should be denied after consuming all tokens")
	}

	// Wait 1 second (should refill 2 tokens)
	time.Sleep(1100 * time.Millisecond)

	if !bucket.AllowN(2) {
		t.Error("AllowN(2) should be allowed after refill")
	}
}

func TestTokenBucket_Remaining(t *testing.T) {
	bucket := NewTokenBucket(3, 1)

	if got := bucket.Remaining(); got != 3 {
		t.Errorf("Remaining() = %d, want 3", got)
	}

	bucket.Allow()
	bucket.Allow()

	if got := bucket.Remaining(); got != 1 {
		t.Errorf("Remaining() = %d, want 1", got)
	}
}

func TestRateLimiter_Allow(t *testing.T) {
	limiter := NewRateLimiter(3, 1) // 3 capacity, 1 refill per second

	// Test for key "player1"
	for i := 0; i < 3; i++ {
		if !limiter.Allow("player1") {
			t.Errorf("Request %d for player1 should be allowed", i+1)
		}
	}

	// 4th request should be denied
	if limiter.Allow("player1") {
		t.Error("4th request for player1 should be denied")
	}

	// Different key should have separate bucket
	if !limiter.Allow("player2") {
		t.Error("First request for player2 should be allowed")
	}
}
