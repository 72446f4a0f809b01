package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/pkg/token"
)

const internalTokenHeader = "X-Internal-Token"

// Internal 내부 운영 엔드포인트 보호 미들웨어.
// JWT가 아니라 서버 간 공유 시크릿으로 검증한다 — 플레이어 토큰과 경로가 섞이지 않게.
func Internal(cred *token.InternalCredential) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := cred.Verify(c.GetHeader(internalTokenHeader)); err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid internal credential",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
