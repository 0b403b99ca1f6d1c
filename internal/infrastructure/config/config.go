package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App         AppConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Log         LogConfig
	HTTP        HTTPConfig
	Usage       UsageConfig
	Quota       QuotaConfig
	Automation  AutomationConfig
	Idempotency IdempotencyConfig
	Leads       LeadsConfig
	Storage     StorageConfig
	Telemetry   TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port for the redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                string
	Issuer                string
	AccessTokenExpiration time.Duration
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	CORSAllowOrigins []string
	CORSAllowMethods []string
	CORSAllowHeaders []string
	TrustedProxies   []string
}

// Increment strategies for the usage ledger
const (
	UsageStrategyUpsert     = "upsert"
	UsageStrategyOptimistic = "optimistic"
)

// UsageConfig holds usage ledger settings
type UsageConfig struct {
	Strategy     string        // upsert or optimistic
	MaxRetries   int           // attempts before CONFLICT_EXCEEDED_RETRIES
	RetryBackoff time.Duration // base backoff between conflicting attempts
	StoreTimeout time.Duration // deadline for each storage call
	Timezone     string        // IANA zone used for month bucketing
}

// Location resolves the configured timezone
func (u *UsageConfig) Location() (*time.Location, error) {
	if u.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(u.Timezone)
}

// QuotaConfig maps subscription tiers to monthly lead limits
type QuotaConfig struct {
	Tiers       map[string]int64
	DefaultTier string
}

// LimitFor returns the monthly limit of tier, falling back to the default tier
func (q *QuotaConfig) LimitFor(tier string) int64 {
	if limit, ok := q.Tiers[strings.ToLower(tier)]; ok {
		return limit
	}
	return q.Tiers[q.DefaultTier]
}

// AutomationConfig holds settings for the external campaign automation service
type AutomationConfig struct {
	WebhookURL    string
	WebhookSecret string // shared secret sent and expected in the n8n-auth header
	CallbackURL   string // status webhook URL handed to the automation service
	Timeout       time.Duration
}

// IdempotencyConfig holds settings for duplicate request detection
type IdempotencyConfig struct {
	TTL time.Duration
}

// LeadsConfig bounds uploaded lead files
type LeadsConfig struct {
	MaxRows   int // data rows accepted per file
	MaxErrors int // row errors reported per file
}

// StorageConfig holds S3-compatible object storage settings
type StorageConfig struct {
	Enabled      bool
	Endpoint     string
	Region       string
	Bucket       string
	AccessKey    string
	SecretKey    string
	UseSSL       bool
	UsePathStyle bool
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	DBTraceEnabled    bool
	DBLogFullSQL      bool
	MetricsEnabled    bool // Expose prometheus metrics on /metrics
}

var defaultTierLimits = map[string]int64{
	"free":    100,
	"starter": 1000,
	"pro":     10000,
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LEADFLOW_ prefix (e.g., LEADFLOW_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	v.SetEnvPrefix("LEADFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return fromViper(v)
}

func fromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                v.GetString("jwt.secret"),
			Issuer:                v.GetString("jwt.issuer"),
			AccessTokenExpiration: v.GetDuration("jwt.access_token_expiration"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods: v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders: v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Usage: UsageConfig{
			Strategy:     v.GetString("usage.strategy"),
			MaxRetries:   v.GetInt("usage.max_retries"),
			RetryBackoff: v.GetDuration("usage.retry_backoff"),
			StoreTimeout: v.GetDuration("usage.store_timeout"),
			Timezone:     v.GetString("usage.timezone"),
		},
		Quota: QuotaConfig{
			Tiers:       readTiers(v),
			DefaultTier: v.GetString("quota.default_tier"),
		},
		Automation: AutomationConfig{
			WebhookURL:    v.GetString("automation.webhook_url"),
			WebhookSecret: v.GetString("automation.webhook_secret"),
			CallbackURL:   v.GetString("automation.callback_url"),
			Timeout:       v.GetDuration("automation.timeout"),
		},
		Idempotency: IdempotencyConfig{
			TTL: v.GetDuration("idempotency.ttl"),
		},
		Leads: LeadsConfig{
			MaxRows:   v.GetInt("leads.max_rows"),
			MaxErrors: v.GetInt("leads.max_errors"),
		},
		Storage: StorageConfig{
			Enabled:      v.GetBool("storage.enabled"),
			Endpoint:     v.GetString("storage.endpoint"),
			Region:       v.GetString("storage.region"),
			Bucket:       v.GetString("storage.bucket"),
			AccessKey:    v.GetString("storage.access_key"),
			SecretKey:    v.GetString("storage.secret_key"),
			UseSSL:       v.GetBool("storage.use_ssl"),
			UsePathStyle: v.GetBool("storage.use_path_style"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// readTiers merges tiers declared in the file with env overrides of the known tiers
// (LEADFLOW_QUOTA_TIERS_PRO=50000)
func readTiers(v *viper.Viper) map[string]int64 {
	tiers := make(map[string]int64)
	for name := range v.GetStringMap("quota.tiers") {
		tiers[strings.ToLower(name)] = v.GetInt64("quota.tiers." + name)
	}
	for name := range defaultTierLimits {
		if v.IsSet("quota.tiers." + name) {
			tiers[name] = v.GetInt64("quota.tiers." + name)
		}
	}
	return tiers
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "leadflow-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "leadflow"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "leadflow"
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = time.Hour
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 30 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 10 << 20 // 10MB
	}
	// NOTE: CORS origins have no wildcard fallback; an empty list allows no cross-origin requests.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID", "Idempotency-Key"}
	}
	if cfg.Usage.Strategy == "" {
		cfg.Usage.Strategy = UsageStrategyUpsert
	}
	if cfg.Usage.MaxRetries == 0 {
		cfg.Usage.MaxRetries = 5
	}
	if cfg.Usage.RetryBackoff == 0 {
		cfg.Usage.RetryBackoff = 10 * time.Millisecond
	}
	if cfg.Usage.StoreTimeout == 0 {
		cfg.Usage.StoreTimeout = 3 * time.Second
	}
	if cfg.Usage.Timezone == "" {
		cfg.Usage.Timezone = "UTC"
	}
	if cfg.Quota.Tiers == nil {
		cfg.Quota.Tiers = make(map[string]int64)
	}
	for name, limit := range defaultTierLimits {
		if _, ok := cfg.Quota.Tiers[name]; !ok {
			cfg.Quota.Tiers[name] = limit
		}
	}
	if cfg.Quota.DefaultTier == "" {
		cfg.Quota.DefaultTier = "free"
	}
	if cfg.Automation.Timeout == 0 {
		cfg.Automation.Timeout = 10 * time.Second
	}
	if cfg.Automation.CallbackURL == "" {
		cfg.Automation.CallbackURL = "http://localhost:" + cfg.App.Port + "/api/campaign-status"
	}
	if cfg.Leads.MaxRows == 0 {
		cfg.Leads.MaxRows = 10000
	}
	if cfg.Leads.MaxErrors == 0 {
		cfg.Leads.MaxErrors = 100
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "us-east-1"
	}
	if cfg.Storage.Bucket == "" {
		cfg.Storage.Bucket = "leadflow-uploads"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "leadflow-backend"
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Usage.Strategy {
	case UsageStrategyUpsert, UsageStrategyOptimistic:
	default:
		return fmt.Errorf("usage.strategy must be %q or %q, got %q",
			UsageStrategyUpsert, UsageStrategyOptimistic, c.Usage.Strategy)
	}
	if c.Usage.MaxRetries < 1 {
		return fmt.Errorf("usage.max_retries must be at least 1")
	}
	if c.Usage.StoreTimeout < 0 {
		return fmt.Errorf("usage.store_timeout cannot be negative")
	}
	if _, err := c.Usage.Location(); err != nil {
		return fmt.Errorf("usage.timezone: %w", err)
	}

	for name, limit := range c.Quota.Tiers {
		if limit <= 0 {
			return fmt.Errorf("quota.tiers.%s must be positive, got %d", name, limit)
		}
	}
	if _, ok := c.Quota.Tiers[c.Quota.DefaultTier]; !ok {
		return fmt.Errorf("quota.default_tier %q is not a configured tier", c.Quota.DefaultTier)
	}

	if c.Automation.WebhookURL != "" {
		if _, err := url.ParseRequestURI(c.Automation.WebhookURL); err != nil {
			return fmt.Errorf("automation.webhook_url: %w", err)
		}
	}
	callback, err := url.Parse(c.Automation.CallbackURL)
	if err != nil || callback.Scheme == "" || callback.Host == "" {
		return fmt.Errorf("automation.callback_url must be an absolute URL, got %q", c.Automation.CallbackURL)
	}

	if c.Leads.MaxRows < 1 || c.Leads.MaxErrors < 1 {
		return fmt.Errorf("leads.max_rows and leads.max_errors must be positive")
	}

	if c.App.Env == "production" {
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Automation.WebhookSecret == "" {
			return fmt.Errorf("automation.webhook_secret is required in production")
		}
		if callback.Hostname() == "localhost" {
			return fmt.Errorf("automation.callback_url must be reachable by the automation service in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
