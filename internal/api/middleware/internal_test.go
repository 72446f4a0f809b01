package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/skirmish-gg/skirmish-backend/pkg/token"
	"github.com/stretchr/testify/assert"
)

func newInternalRouter(cred *token.InternalCredential) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/internal/stats", Internal(cred), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return r
}

func TestInternal_ValidCredential(t *testing.T) {
	cred := token.InternalCredentialFrom("ops-secret")
	r := newInternalRouter(cred)

	req := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
	req.Header.Set("X-Internal-Token", "ops-secret")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestInternal_InvalidCredential(t *testing.T) {
	cred := token.InternalCredentialFrom("ops-secret")
	r := newInternalRouter(cred)

	for _, presented := range []string{"", "wrong-secret"} {
		req := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
		if presented != "" {
			req.Header.Set("X-Internal-Token", presented)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	}
}

func TestInternal_UnsetSecretLocksSurface(t *testing.T) {
	// 시크릿 미설정 → 프로세스 로컬 랜덤값이라 어떤 추측도 통하지 않는다
	cred := token.InternalCredentialFrom("")
	r := newInternalRouter(cred)

	req := httptest.NewRequest(http.MethodGet, "/internal/stats", nil)
	req.Header.Set("X-Internal-Token", "guess")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
