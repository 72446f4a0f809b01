package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/pkg/logger"
)

// Logger HTTP 요청 로깅 미들웨어.
// health check와 WS 업그레이드 요청은 노이즈가 심해서 건너뛴다
// (WS 연결 수명은 hub 쪽에서 로깅).
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		if path == "/health" || c.IsWebsocket() {
			return
		}

		latency := time.Since(start)

		logger.Info("HTTP Request",
			"method", c.Request.Method,
			"path", path,
			"query", query,
			"status", c.Writer.Status(),
			"latency", latency,
			"ip", c.ClientIP(),
		)
	}
}
