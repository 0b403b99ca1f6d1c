package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	campaignapp "github.com/leadflow/backend/internal/application/campaign"
	leadapp "github.com/leadflow/backend/internal/application/lead"
	usageapp "github.com/leadflow/backend/internal/application/usage"
	"github.com/leadflow/backend/internal/domain/shared"
	"github.com/leadflow/backend/internal/infrastructure/auth"
	"github.com/leadflow/backend/internal/infrastructure/automation"
	"github.com/leadflow/backend/internal/infrastructure/cache"
	"github.com/leadflow/backend/internal/infrastructure/config"
	"github.com/leadflow/backend/internal/infrastructure/leadimport"
	"github.com/leadflow/backend/internal/infrastructure/logger"
	"github.com/leadflow/backend/internal/infrastructure/persistence"
	"github.com/leadflow/backend/internal/infrastructure/storage"
	"github.com/leadflow/backend/internal/infrastructure/telemetry"
	"github.com/leadflow/backend/internal/interfaces/http/handler"
	"github.com/leadflow/backend/internal/interfaces/http/middleware"
	"github.com/leadflow/backend/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting LeadFlow backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	tp, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    version,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()

	// Database
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level), 0)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:    cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL: cfg.Telemetry.DBLogFullSQL,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	var metrics *telemetry.Metrics
	if cfg.Telemetry.MetricsEnabled {
		metrics = telemetry.NewMetrics(true)
	}

	// Repositories
	campaignRepo := persistence.NewCampaignRepository(db.DB)
	usageRepo := persistence.NewUsageLimitRepository(db.DB)
	userRepo := persistence.NewGormUserRepository(db.DB)

	// Usage ledger and quotas
	loc, err := cfg.Usage.Location()
	if err != nil {
		log.Fatal("Invalid usage timezone", zap.String("timezone", cfg.Usage.Timezone), zap.Error(err))
	}
	clock := shared.NewSystemClock(loc)

	var ledgerOpts []usageapp.Option
	if metrics != nil {
		ledgerOpts = append(ledgerOpts, usageapp.WithRecorder(metrics))
	}
	ledger := usageapp.NewLedger(usageRepo, clock, usageapp.Config{
		Strategy:     usageapp.Strategy(cfg.Usage.Strategy),
		MaxRetries:   cfg.Usage.MaxRetries,
		RetryBackoff: cfg.Usage.RetryBackoff,
		StoreTimeout: cfg.Usage.StoreTimeout,
	}, log.Named("usage"), ledgerOpts...)
	quotaService := usageapp.NewQuotaService(ledger, userRepo, &cfg.Quota, log.Named("quota"))

	// Idempotency
	idemStore, err := cache.NewIdempotencyStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create idempotency store", zap.Error(err))
	}

	// Automation webhook
	automationClient := automation.NewClient(automation.Config{
		WebhookURL:  cfg.Automation.WebhookURL,
		Secret:      cfg.Automation.WebhookSecret,
		CallbackURL: cfg.Automation.CallbackURL,
		Timeout:     cfg.Automation.Timeout,
	}, nil, log.Named("automation"))

	// Lead file storage
	var objects leadapp.ObjectStorage
	if cfg.Storage.Enabled {
		s3, err := storage.NewS3ObjectStorage(&cfg.Storage, storage.WithLogger(log.Named("storage")))
		if err != nil {
			log.Fatal("Failed to create object storage", zap.Error(err))
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			log.Warn("Could not verify storage bucket", zap.String("bucket", s3.GetBucket()), zap.Error(err))
		}
		objects = s3
	} else {
		log.Warn("Object storage disabled, lead files are kept in memory")
		objects = storage.NewStubObjectStorage()
	}

	// Application services
	intakeOpts := []campaignapp.IntakeOption{
		campaignapp.WithIdempotency(idemStore, cfg.Idempotency.TTL),
	}
	if metrics != nil {
		intakeOpts = append(intakeOpts, campaignapp.WithOutcomeRecorder(metrics))
	}
	intakeService := campaignapp.NewIntakeService(
		campaignRepo, quotaService, &cfg.Quota, ledger, automationClient, clock, log.Named("campaign"), intakeOpts...,
	)
	statusService := campaignapp.NewStatusService(campaignRepo, clock, log.Named("campaign"))
	leadParser := leadimport.NewLeadParser(
		leadimport.WithMaxRows(cfg.Leads.MaxRows),
		leadimport.WithMaxErrors(cfg.Leads.MaxErrors),
	)
	uploadService := leadapp.NewUploadService(objects, leadParser, log.Named("lead"))

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}

	cors := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		cors.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}

	opts := router.Options{
		Logger:   log,
		Auth:     auth.NewJWTService(cfg.JWT),
		CORS:     cors,
		Security: middleware.DefaultSecurityConfig(),
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
		},
		MaxBodySize:    cfg.HTTP.MaxBodySize,
		TrustedProxies: cfg.HTTP.TrustedProxies,
	}
	if metrics != nil {
		opts.Metrics = metrics
		opts.MetricsHandler = metrics.Handler()
	}

	engine, err := router.NewEngine(router.Handlers{
		Campaign:       handler.NewCampaignHandler(intakeService),
		CampaignStatus: handler.NewCampaignStatusHandler(statusService, cfg.Automation.WebhookSecret),
		Lead:           handler.NewLeadHandler(uploadService),
		Usage:          handler.NewUsageHandler(quotaService),
		Health:         handler.NewHealthHandler(db.Ping, version),
	}, opts)
	if err != nil {
		log.Fatal("Failed to build HTTP engine", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
