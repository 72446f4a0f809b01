package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimiter Redis 기반 분산 Rate Limiter.
// 여러 서버 인스턴스가 같은 enqueue 한도를 공유할 때 사용한다.
type RedisRateLimiter struct {
	client       *redis.Client
	keyPrefix    string
	defaultLimit int
	defaultTTL   time.Duration
}

// RedisRateLimiterConfig Redis Rate Limiter 설정
type RedisRateLimiterConfig struct {
	Client       *redis.Client // 공유 Redis 클라이언트
	KeyPrefix    string        // 키 접두사 (예: "ratelimit:")
	DefaultLimit int           // 기본 요청 제한
	DefaultTTL   time.Duration // 기본 윈도우 크기
}

// NewRedisRateLimiter Redis 기반 Rate Limiter 생성
func NewRedisRateLimiter(config RedisRateLimiterConfig) *RedisRateLimiter {
	if config.KeyPrefix == "" {
		config.KeyPrefix = "ratelimit:"
	}
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 60
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = time.Minute
	}

	return &RedisRateLimiter{
		client:       config.Client,
		keyPrefix:    config.KeyPrefix,
		defaultLimit: config.DefaultLimit,
		defaultTTL:   config.DefaultTTL,
	}
}

// Allow 요청 허용 여부 확인 (고정 윈도우 카운터)
// key: Rate Limit 대상 식별자 (예: playerID, IP)
func (r *RedisRateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if window <= 0 {
		window = r.defaultTTL
	}

	redisKey := r.keyPrefix + key

	// Lua 스크립트로 INCR + EXPIRE를 원자적으로 수행
	script := redis.NewScript(`
		local key = KEYS[1]
		local limit = tonumber(ARGV[1])
		local window = tonumber(ARGV[2])

		local count = redis.call('INCR', key)
		if count == 1 then
			redis.call('PEXPIRE', key, window)
		end

		if count > limit then
			return 0
		end
		return 1
	`)

	result, err := script.Run(ctx, r.client, []string{redisKey}, limit, window.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to run rate limit script: %w", err)
	}

	return result == 1, nil
}

// Reset 특정 키의 카운터 초기화
func (r *RedisRateLimiter) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.keyPrefix+key).Err()
}

// Ping Redis 연결 확인
func (r *RedisRateLimiter) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
