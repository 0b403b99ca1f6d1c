package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/leadflow/backend/internal/infrastructure/auth"
	"github.com/leadflow/backend/internal/infrastructure/config"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestJWTService(expiration time.Duration) *auth.JWTService {
	return auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		Issuer:                "test-issuer",
		AccessTokenExpiration: expiration,
	})
}

func newProtectedRouter(svc *auth.JWTService) *gin.Engine {
	router := gin.New()
	router.Use(JWTAuth(svc, zap.NewNop()))
	router.GET("/protected", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetJWTUserID(c),
			"ctx_user": logger.GetUserID(c.Request.Context()),
			"email":    GetJWTClaims(c).Email,
		})
	})
	return router
}

func TestJWTAuth_ValidToken(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	token, _, err := svc.GenerateToken("user_2abc", "owner@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(AuthHeaderKey, BearerPrefix+token)
	w := httptest.NewRecorder()
	newProtectedRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user_2abc","ctx_user":"user_2abc","email":"owner@example.com"}`, w.Body.String())
}

func TestJWTAuth_Rejections(t *testing.T) {
	svc := newTestJWTService(15 * time.Minute)
	expired := newTestJWTService(-time.Minute)
	expiredToken, _, err := expired.GenerateToken("user_2abc", "")
	require.NoError(t, err)

	tests := []struct {
		name     string
		header   string
		wantCode string
	}{
		{"missing header", "", "ERR_TOKEN_INVALID"},
		{"wrong scheme", "Basic dXNlcjpwYXNz", "ERR_TOKEN_INVALID"},
		{"empty bearer", "Bearer ", "ERR_TOKEN_INVALID"},
		{"garbage token", "Bearer not.a.jwt", "ERR_TOKEN_INVALID"},
		{"expired token", "Bearer " + expiredToken, "ERR_TOKEN_EXPIRED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := httptest.NewRecorder()
			newProtectedRouter(svc).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantCode)
		})
	}
}
