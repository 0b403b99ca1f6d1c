package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"github.com/leadflow/backend/internal/interfaces/http/handler"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// Handlers are the endpoint handlers mounted by NewEngine
type Handlers struct {
	Campaign       *handler.CampaignHandler
	CampaignStatus *handler.CampaignStatusHandler
	Lead           *handler.LeadHandler
	Usage          *handler.UsageHandler
	Health         *handler.HealthHandler
}

// Options configure the engine's middleware chain
type Options struct {
	Logger         *zap.Logger
	Auth           middleware.TokenValidator
	CORS           middleware.CORSConfig
	Security       middleware.SecurityConfig
	Tracing        middleware.TracingConfig
	Metrics        middleware.HTTPObserver
	MetricsHandler http.Handler // served on /metrics when set
	MaxBodySize    int64
	TrustedProxies []string
}

// NewEngine builds the gin engine with the full middleware chain and routes:
//
//	GET  /health
//	GET  /metrics
//	POST /api/campaign-status        (n8n-auth shared secret)
//	POST /api/campaigns              (JWT)
//	GET  /api/campaigns              (JWT)
//	GET  /api/campaigns/:id          (JWT)
//	POST /api/leads/upload           (JWT)
//	GET  /api/usage                  (JWT)
//	GET  /api/usage/history          (JWT)
func NewEngine(h Handlers, opts Options) (*gin.Engine, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	engine := gin.New()
	if err := engine.SetTrustedProxies(opts.TrustedProxies); err != nil {
		return nil, err
	}

	engine.Use(
		middleware.Tracing(opts.Tracing),
		middleware.RequestID(log),
		logger.Recovery(log),
		logger.GinMiddleware(log),
		middleware.HTTPMetrics(opts.Metrics),
		middleware.CORS(opts.CORS),
		middleware.Secure(opts.Security),
	)
	if opts.MaxBodySize > 0 {
		engine.Use(middleware.BodyLimit(opts.MaxBodySize))
	}
	engine.Use(middleware.SpanAttributes())

	if h.Health != nil {
		engine.GET("/health", h.Health.Health)
	}
	if opts.MetricsHandler != nil {
		engine.GET("/metrics", gin.WrapH(opts.MetricsHandler))
	}

	r := NewRouter(engine)

	if h.CampaignStatus != nil {
		r.Register(NewDomainGroup("automation", "").
			POST("/campaign-status", h.CampaignStatus.Update))
	}

	authed := NewDomainGroup("authenticated", "").Use(middleware.JWTAuth(opts.Auth, log))
	if h.Campaign != nil {
		authed.Group("campaigns", "/campaigns").
			POST("", h.Campaign.Create).
			GET("", h.Campaign.List).
			GET("/:id", h.Campaign.Get)
	}
	if h.Lead != nil {
		authed.Group("leads", "/leads").
			POST("/upload", h.Lead.Upload)
	}
	if h.Usage != nil {
		authed.Group("usage", "/usage").
			GET("", h.Usage.Current).
			GET("/history", h.Usage.History)
	}
	r.Register(authed)
	r.Setup()

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": gin.H{"code": "ERR_NOT_FOUND", "message": "Route not found"}})
	})
	return engine, nil
}
