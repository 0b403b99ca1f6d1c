package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	appusage "github.com/leadflow/backend/internal/application/usage"
	"github.com/leadflow/backend/internal/domain/identity"
	"github.com/leadflow/backend/internal/domain/usage"
	"github.com/leadflow/backend/internal/infrastructure/auth"
	"github.com/leadflow/backend/internal/infrastructure/config"
	"github.com/leadflow/backend/internal/interfaces/http/handler"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	group := NewDomainGroup("test", "/test")
	group.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	assert.Equal(t, "test", group.Name())
	assert.Equal(t, "/test", group.Prefix())

	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
}

func TestRouterWithBasePath(t *testing.T) {
	engine := gin.New()
	group := NewDomainGroup("test", "/things")
	group.POST("", func(c *gin.Context) { c.Status(http.StatusCreated) })
	NewRouter(engine, WithBasePath("/v2/")).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v2/things", nil))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestDomainGroup_Middleware(t *testing.T) {
	engine := gin.New()
	var order []string
	group := NewDomainGroup("outer", "/outer").Use(func(c *gin.Context) {
		order = append(order, "outer")
		c.Next()
	})
	group.Group("inner", "/inner").GET("/x", func(c *gin.Context) {
		order = append(order, "handler")
		c.Status(http.StatusOK)
	})
	NewRouter(engine).Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/outer/inner/x", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"outer", "handler"}, order)
}

type stubQuotas struct{}

func (stubQuotas) Current(_ context.Context, userID string) (appusage.Quota, error) {
	return appusage.Quota{
		Tier:   identity.TierFree,
		Period: usage.Period{Year: 2024, Month: time.March},
		Usage:  usage.NewUsage(1, 100),
	}, nil
}

func (stubQuotas) History(context.Context, string, int) ([]*usage.UsageRecord, error) {
	return nil, nil
}

type stubStatus struct{ calls int }

func (s *stubStatus) Apply(context.Context, campaignapp.StatusInput) error {
	s.calls++
	return nil
}

type observed struct{ paths []string }

func (o *observed) ObserveHTTP(_, path string, _ int, _ time.Duration) {
	o.paths = append(o.paths, path)
}

func TestNewEngine(t *testing.T) {
	require.NoError(t, middleware.SetupValidator())
	jwtSvc := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: time.Hour,
	})
	status := &stubStatus{}
	obs := &observed{}

	engine, err := NewEngine(Handlers{
		CampaignStatus: handler.NewCampaignStatusHandler(status, "s3cret"),
		Usage:          handler.NewUsageHandler(stubQuotas{}),
		Health:         handler.NewHealthHandler(nil, "test"),
	}, Options{
		Auth:           jwtSvc,
		CORS:           middleware.DefaultCORSConfig(),
		Security:       middleware.DefaultSecurityConfig(),
		Metrics:        obs,
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("metrics")) }),
		MaxBodySize:    1 << 20,
	})
	require.NoError(t, err)

	t.Run("health is public", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))
		assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, "metrics", w.Body.String())
	})

	t.Run("usage requires a token", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/usage", nil))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("usage with token", func(t *testing.T) {
		token, _, err := jwtSvc.GenerateToken("user_1", "")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/usage", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"remaining":99`)
	})

	t.Run("status webhook uses the shared secret", func(t *testing.T) {
		body := `{"campaignId":"` + uuid.NewString() + `","status":"processing","leadsProcessed":3}`
		req := httptest.NewRequest(http.MethodPost, "/api/campaign-status", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("n8n-auth", "s3cret")
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, 1, status.calls)
	})

	t.Run("unknown route", func(t *testing.T) {
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nothing", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	assert.Contains(t, obs.paths, "/api/usage")
	assert.Contains(t, obs.paths, "/health")
}
