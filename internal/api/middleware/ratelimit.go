package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
	"github.com/skirmish-gg/skirmish-backend/pkg/ratelimit"
)

// RateLimitConfig 인메모리 Rate Limit 설정
type RateLimitConfig struct {
	Capacity   int64                     // 최대 토큰 수
	RefillRate int64                     // 초당 충전 토큰
	KeyFunc    func(*gin.Context) string // 키 추출 함수
}

// RedisRateLimitConfig Redis 기반 Rate Limit 설정 (다중 인스턴스 공유)
type RedisRateLimitConfig struct {
	Limiter *ratelimit.RedisRateLimiter
	Limit   int           // 윈도우 내 최대 요청 수
	Window  time.Duration // 윈도우 크기
	KeyFunc func(*gin.Context) string
}

// DefaultKeyFunc 인증됐으면 플레이어 ID, 아니면 IP
func DefaultKeyFunc(c *gin.Context) string {
	if playerID := PlayerID(c); playerID != "" {
		return fmt.Sprintf("player:%s", playerID)
	}
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// IPKeyFunc IP 기반 키 (인증 전 엔드포인트용)
func IPKeyFunc(c *gin.Context) string {
	return fmt.Sprintf("ip:%s", c.ClientIP())
}

// RateLimitMiddleware 인메모리 토큰 버킷 Rate Limiting
func RateLimitMiddleware(config RateLimitConfig) gin.HandlerFunc {
	limiter := ratelimit.NewRateLimiter(config.Capacity, config.RefillRate)

	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		if !limiter.Allow(key) {
			c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))
			c.Header("X-RateLimit-Remaining", "0")
			c.Header("Retry-After", "1")

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(config.Capacity, 10))
		c.Next()
	}
}

// RedisRateLimitMiddleware Redis 고정 윈도우 Rate Limiting
func RedisRateLimitMiddleware(config RedisRateLimitConfig) gin.HandlerFunc {
	if config.KeyFunc == nil {
		config.KeyFunc = DefaultKeyFunc
	}

	return func(c *gin.Context) {
		key := config.KeyFunc(c)

		ctx := context.Background()
		allowed, err := config.Limiter.Allow(ctx, key, config.Limit, config.Window)
		if err != nil {
			// Redis 오류 시 요청 허용 (fail-open)
			logger.Warn("Redis rate limit check failed", "key", key, "error", err)
			c.Next()
			return
		}

		if !allowed {
			c.Header("X-RateLimit-Limit", strconv.Itoa(config.Limit))
			c.Header("Retry-After", strconv.Itoa(int(config.Window.Seconds())))

			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuthRateLimit 로그인/가입 시도 제한 (IP 기반, 인증 전이므로)
func AuthRateLimit() gin.HandlerFunc {
	return RateLimitMiddleware(RateLimitConfig{
		Capacity:   5,
		RefillRate: 1,
		KeyFunc:    IPKeyFunc,
	})
}

// EnqueueRateLimit 대기열 등록 제한.
// Redis가 있으면 인스턴스 간 공유 한도, 없으면 인메모리 토큰 버킷.
func EnqueueRateLimit(limiter *ratelimit.RedisRateLimiter, limit int, window time.Duration) gin.HandlerFunc {
	if limiter != nil {
		return RedisRateLimitMiddleware(RedisRateLimitConfig{
			Limiter: limiter,
			Limit:   limit,
			Window:  window,
		})
	}
	return RateLimitMiddleware(RateLimitConfig{
		Capacity:   int64(limit),
		RefillRate: int64(limit)/int64(window.Seconds()) + 1,
	})
}
