package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/chapteradmin/pkg/audit"
	"github.com/platinummonkey/chapteradmin/pkg/cache"
	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/identity"
	"github.com/platinummonkey/chapteradmin/pkg/middleware"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
	"github.com/platinummonkey/chapteradmin/pkg/storage"
	"github.com/platinummonkey/chapteradmin/pkg/storage/postgres"
)

// EnvPrefix prefixes every environment variable read by Load
const EnvPrefix = "CHAPTERS_"

// FileEnv names the variable holding an optional YAML config file path
const FileEnv = EnvPrefix + "CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Storage       storage.Config      `yaml:"storage"`
	Cache         cache.Config        `yaml:"cache"`
	Identity      IdentityConfig      `yaml:"identity"`
	Engine        EngineConfig        `yaml:"engine"`
	RateLimit     RateLimitConfig     `yaml:"rateLimit"`
	Audit         AuditConfig         `yaml:"audit"`
	Maintenance   MaintenanceConfig   `yaml:"maintenance"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	IdleTimeout     time.Duration `yaml:"idleTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	MaxBodyBytes    int64         `yaml:"maxBodyBytes"`
}

// Addr is the listen address
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// IdentityConfig selects how callers are authenticated and how system
// administrators are recognised
type IdentityConfig struct {
	// SystemAdmins is a static allowlist of user ids
	SystemAdmins []string `yaml:"systemAdmins"`
	// AdminsFile is a YAML allowlist reloaded when it changes
	AdminsFile string `yaml:"adminsFile"`
	// TrustTokenClaims honours the admin claim of a verified token
	TrustTokenClaims bool `yaml:"trustTokenClaims"`

	OIDC identity.OIDCConfig `yaml:"oidc"`

	// DevTokens maps opaque bearer tokens to user ids. Only used when no
	// OIDC issuer is configured.
	DevTokens map[string]string `yaml:"devTokens"`
}

// EngineConfig tunes the chapters engine
type EngineConfig struct {
	CallTimeout     time.Duration `yaml:"callTimeout"`
	CacheTimeout    time.Duration `yaml:"cacheTimeout"`
	AuditTimeout    time.Duration `yaml:"auditTimeout"`
	AssignRetries   int           `yaml:"assignRetries"`
	SchoolAdminsTTL time.Duration `yaml:"schoolAdminsTtl"`
	UserSchoolsTTL  time.Duration `yaml:"userSchoolsTtl"`
	AllSchoolsTTL   time.Duration `yaml:"allSchoolsTtl"`
}

// Options converts the section to engine options
func (e EngineConfig) Options() chapters.Options {
	return chapters.Options{
		CallTimeout:     e.CallTimeout,
		CacheTimeout:    e.CacheTimeout,
		AuditTimeout:    e.AuditTimeout,
		AssignRetries:   e.AssignRetries,
		SchoolAdminsTTL: e.SchoolAdminsTTL,
		UserSchoolsTTL:  e.UserSchoolsTTL,
		AllSchoolsTTL:   e.AllSchoolsTTL,
	}
}

// RateLimitConfig sets the per-window request budgets of the API
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled"`
	CallerRequests    int           `yaml:"callerRequests"`
	AnonymousRequests int           `yaml:"anonymousRequests"`
	Window            time.Duration `yaml:"window"`
	Burst             int           `yaml:"burst"`
	// TrustedProxies lists the CIDRs or addresses whose X-Forwarded-For
	// and X-Real-IP headers name the client
	TrustedProxies []string `yaml:"trustedProxies"`
}

// Middleware builds the rate limiter, or nil when disabled
func (r RateLimitConfig) Middleware() (*middleware.RateLimitMiddleware, error) {
	if !r.Enabled {
		return nil, nil
	}
	m := middleware.NewRateLimitMiddleware(
		&middleware.RateLimitConfig{RequestsPerWindow: r.CallerRequests, WindowDuration: r.Window, BurstSize: r.Burst},
		&middleware.RateLimitConfig{RequestsPerWindow: r.AnonymousRequests, WindowDuration: r.Window, BurstSize: r.Burst},
	)
	if err := m.TrustProxies(r.TrustedProxies...); err != nil {
		return nil, err
	}
	return m, nil
}

// AuditConfig controls the audit trail
type AuditConfig struct {
	// Database writes events to chapter_admin_audit_log in the postgres store
	Database  bool                `yaml:"database"`
	Retention time.Duration       `yaml:"retention"`
	Archive   audit.ArchiveConfig `yaml:"archive"`
}

// MaintenanceConfig schedules background jobs. Schedules use standard
// five-field cron syntax or descriptors such as "@every 5m".
type MaintenanceConfig struct {
	Enabled           bool          `yaml:"enabled"`
	AuditSchedule     string        `yaml:"auditSchedule"`
	CacheWarmSchedule string        `yaml:"cacheWarmSchedule"`
	JobTimeout        time.Duration `yaml:"jobTimeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       string `yaml:"logLevel"`
	MetricsEnabled bool   `yaml:"metricsEnabled"`

	OTelEnabled        bool    `yaml:"otelEnabled"`
	OTelEndpoint       string  `yaml:"otelEndpoint"`
	OTelServiceName    string  `yaml:"otelServiceName"`
	OTelServiceVersion string  `yaml:"otelServiceVersion"`
	OTelInsecure       bool    `yaml:"otelInsecure"`
	OTelSampleRatio    float64 `yaml:"otelSampleRatio"`
}

// Level parses LogLevel
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// OTel converts the section to an OpenTelemetry config
func (o ObservabilityConfig) OTel() observability.OTelConfig {
	return observability.OTelConfig{
		Enabled:        o.OTelEnabled,
		Endpoint:       o.OTelEndpoint,
		ServiceName:    o.OTelServiceName,
		ServiceVersion: o.OTelServiceVersion,
		Insecure:       o.OTelInsecure,
		SampleRatio:    o.OTelSampleRatio,
	}
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodyBytes:    1 << 20,
		},
		Storage: storage.DefaultConfig(),
		Cache:   cache.DefaultConfig(),
		Identity: IdentityConfig{
			OIDC: identity.OIDCConfig{EmailClaim: "email"},
		},
		Engine: EngineConfig{
			CallTimeout:     5 * time.Second,
			CacheTimeout:    500 * time.Millisecond,
			AuditTimeout:    5 * time.Second,
			AssignRetries:   3,
			SchoolAdminsTTL: 5 * time.Minute,
			UserSchoolsTTL:  5 * time.Minute,
			AllSchoolsTTL:   time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			CallerRequests:    600,
			AnonymousRequests: 100,
			Window:            time.Minute,
			Burst:             50,
		},
		Audit: AuditConfig{
			Retention: 365 * 24 * time.Hour,
			Archive:   audit.ArchiveConfig{Region: "us-east-1", Prefix: "chapters"},
		},
		Maintenance: MaintenanceConfig{
			Enabled:           true,
			AuditSchedule:     "0 3 * * *",
			CacheWarmSchedule: "@every 5m",
			JobTimeout:        10 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "chapteradmin",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
			OTelSampleRatio:    1,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CHAPTERS_CONFIG_FILE if set, then CHAPTERS_* environment variables.
func Load() (*Config, error) {
	return LoadFile(os.Getenv(FileEnv))
}

// LoadFile is Load with an explicit file path; an empty path skips the file
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	applyServerEnv(&cfg.Server)
	applyStorageEnv(&cfg.Storage)
	applyCacheEnv(&cfg.Cache)
	applyIdentityEnv(&cfg.Identity)
	applyEngineEnv(&cfg.Engine)

	cfg.RateLimit.Enabled = getEnvBool("CHAPTERS_RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.CallerRequests = getEnvInt("CHAPTERS_RATE_LIMIT_CALLER_REQUESTS", cfg.RateLimit.CallerRequests)
	cfg.RateLimit.AnonymousRequests = getEnvInt("CHAPTERS_RATE_LIMIT_ANONYMOUS_REQUESTS", cfg.RateLimit.AnonymousRequests)
	cfg.RateLimit.Window = getEnvDuration("CHAPTERS_RATE_LIMIT_WINDOW", cfg.RateLimit.Window)
	cfg.RateLimit.Burst = getEnvInt("CHAPTERS_RATE_LIMIT_BURST", cfg.RateLimit.Burst)
	if proxies := os.Getenv("CHAPTERS_RATE_LIMIT_TRUSTED_PROXIES"); proxies != "" {
		cfg.RateLimit.TrustedProxies = splitList(proxies)
	}

	applyAuditEnv(&cfg.Audit)

	cfg.Maintenance.Enabled = getEnvBool("CHAPTERS_MAINTENANCE_ENABLED", cfg.Maintenance.Enabled)
	cfg.Maintenance.AuditSchedule = getEnv("CHAPTERS_MAINTENANCE_AUDIT_SCHEDULE", cfg.Maintenance.AuditSchedule)
	cfg.Maintenance.CacheWarmSchedule = getEnv("CHAPTERS_MAINTENANCE_CACHE_WARM_SCHEDULE", cfg.Maintenance.CacheWarmSchedule)
	cfg.Maintenance.JobTimeout = getEnvDuration("CHAPTERS_MAINTENANCE_JOB_TIMEOUT", cfg.Maintenance.JobTimeout)

	applyObservabilityEnv(&cfg.Observability)
}

func applyServerEnv(s *ServerConfig) {
	s.Host = getEnv("CHAPTERS_HOST", s.Host)
	s.Port = getEnv("CHAPTERS_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("CHAPTERS_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("CHAPTERS_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("CHAPTERS_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("CHAPTERS_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.MaxBodyBytes = getEnvInt64("CHAPTERS_MAX_BODY_BYTES", s.MaxBodyBytes)
}

func applyStorageEnv(cfg *storage.Config) {
	cfg.Type = getEnv("CHAPTERS_STORAGE_TYPE", cfg.Type)
	cfg.SQLitePath = getEnv("CHAPTERS_SQLITE_PATH", cfg.SQLitePath)

	// PostgreSQL config
	cfg.PostgresURL = getEnv("CHAPTERS_POSTGRES_URL", cfg.PostgresURL)
	if replicaURLs := getEnv("CHAPTERS_POSTGRES_REPLICA_URLS", ""); replicaURLs != "" {
		cfg.PostgresReplicaURLs = postgres.ParseReplicaURLs(replicaURLs)
	}
	if maxConns := getEnvInt("CHAPTERS_POSTGRES_MAX_CONNS", 0); maxConns > 0 {
		cfg.PostgresMaxConns = maxConns
	}
	if minConns := getEnvInt("CHAPTERS_POSTGRES_MIN_CONNS", 0); minConns > 0 {
		cfg.PostgresMinConns = minConns
	}
	cfg.PostgresTimeout = getEnvDuration("CHAPTERS_POSTGRES_TIMEOUT", cfg.PostgresTimeout)
	cfg.ReplicaReads = getEnvBool("CHAPTERS_POSTGRES_REPLICA_READS", cfg.ReplicaReads)
	cfg.AutoMigrate = getEnvBool("CHAPTERS_POSTGRES_AUTO_MIGRATE", cfg.AutoMigrate)
}

func applyCacheEnv(cfg *cache.Config) {
	cfg.Type = getEnv("CHAPTERS_CACHE_TYPE", cfg.Type)

	// Redis config
	cfg.RedisURL = getEnv("CHAPTERS_REDIS_URL", cfg.RedisURL)
	cfg.RedisPassword = getEnv("CHAPTERS_REDIS_PASSWORD", cfg.RedisPassword)
	if redisDB := getEnvInt("CHAPTERS_REDIS_DB", -1); redisDB >= 0 {
		cfg.RedisDB = redisDB
	}
	if redisMaxRetries := getEnvInt("CHAPTERS_REDIS_MAX_RETRIES", 0); redisMaxRetries > 0 {
		cfg.RedisMaxRetries = redisMaxRetries
	}
	if redisPoolSize := getEnvInt("CHAPTERS_REDIS_POOL_SIZE", 0); redisPoolSize > 0 {
		cfg.RedisPoolSize = redisPoolSize
	}
	cfg.KeyPrefix = getEnv("CHAPTERS_CACHE_KEY_PREFIX", cfg.KeyPrefix)

	// In-process tier
	if localSize := getEnvInt("CHAPTERS_CACHE_LOCAL_SIZE", 0); localSize > 0 {
		cfg.LocalSize = localSize
	}
	cfg.LocalMaxTTL = getEnvDuration("CHAPTERS_CACHE_LOCAL_MAX_TTL", cfg.LocalMaxTTL)
}

func applyIdentityEnv(cfg *IdentityConfig) {
	if admins := getEnv("CHAPTERS_SYSTEM_ADMINS", ""); admins != "" {
		cfg.SystemAdmins = splitList(admins)
	}
	cfg.AdminsFile = getEnv("CHAPTERS_ADMINS_FILE", cfg.AdminsFile)
	cfg.TrustTokenClaims = getEnvBool("CHAPTERS_TRUST_TOKEN_CLAIMS", cfg.TrustTokenClaims)

	cfg.OIDC.IssuerURL = getEnv("CHAPTERS_OIDC_ISSUER_URL", cfg.OIDC.IssuerURL)
	cfg.OIDC.ClientID = getEnv("CHAPTERS_OIDC_CLIENT_ID", cfg.OIDC.ClientID)
	cfg.OIDC.SkipIssuerCheck = getEnvBool("CHAPTERS_OIDC_SKIP_ISSUER_CHECK", cfg.OIDC.SkipIssuerCheck)
	cfg.OIDC.AdminClaim = getEnv("CHAPTERS_OIDC_ADMIN_CLAIM", cfg.OIDC.AdminClaim)
	cfg.OIDC.AdminValue = getEnv("CHAPTERS_OIDC_ADMIN_VALUE", cfg.OIDC.AdminValue)
	cfg.OIDC.EmailClaim = getEnv("CHAPTERS_OIDC_EMAIL_CLAIM", cfg.OIDC.EmailClaim)

	// CHAPTERS_DEV_TOKENS="token1=alice,token2=bob"
	if tokens := getEnv("CHAPTERS_DEV_TOKENS", ""); tokens != "" {
		cfg.DevTokens = make(map[string]string)
		for _, pair := range splitList(tokens) {
			token, user, ok := strings.Cut(pair, "=")
			if ok && token != "" && user != "" {
				cfg.DevTokens[token] = user
			}
		}
	}
}

func applyEngineEnv(cfg *EngineConfig) {
	cfg.CallTimeout = getEnvDuration("CHAPTERS_CALL_TIMEOUT", cfg.CallTimeout)
	cfg.CacheTimeout = getEnvDuration("CHAPTERS_CACHE_TIMEOUT", cfg.CacheTimeout)
	cfg.AuditTimeout = getEnvDuration("CHAPTERS_AUDIT_TIMEOUT", cfg.AuditTimeout)
	cfg.AssignRetries = getEnvInt("CHAPTERS_ASSIGN_RETRIES", cfg.AssignRetries)
	cfg.SchoolAdminsTTL = getEnvDuration("CHAPTERS_SCHOOL_ADMINS_TTL", cfg.SchoolAdminsTTL)
	cfg.UserSchoolsTTL = getEnvDuration("CHAPTERS_USER_SCHOOLS_TTL", cfg.UserSchoolsTTL)
	cfg.AllSchoolsTTL = getEnvDuration("CHAPTERS_ALL_SCHOOLS_TTL", cfg.AllSchoolsTTL)
}

func applyAuditEnv(cfg *AuditConfig) {
	cfg.Database = getEnvBool("CHAPTERS_AUDIT_DATABASE", cfg.Database)
	cfg.Retention = getEnvDuration("CHAPTERS_AUDIT_RETENTION", cfg.Retention)

	// S3 archive
	cfg.Archive.Bucket = getEnv("CHAPTERS_AUDIT_ARCHIVE_BUCKET", cfg.Archive.Bucket)
	cfg.Archive.Region = getEnv("CHAPTERS_AUDIT_ARCHIVE_REGION", cfg.Archive.Region)
	cfg.Archive.Endpoint = getEnv("CHAPTERS_AUDIT_ARCHIVE_ENDPOINT", cfg.Archive.Endpoint)
	cfg.Archive.Prefix = getEnv("CHAPTERS_AUDIT_ARCHIVE_PREFIX", cfg.Archive.Prefix)
	cfg.Archive.AccessKey = getEnv("CHAPTERS_AUDIT_ARCHIVE_ACCESS_KEY", cfg.Archive.AccessKey)
	cfg.Archive.SecretKey = getEnv("CHAPTERS_AUDIT_ARCHIVE_SECRET_KEY", cfg.Archive.SecretKey)
	cfg.Archive.UsePathStyle = getEnvBool("CHAPTERS_AUDIT_ARCHIVE_USE_PATH_STYLE", cfg.Archive.UsePathStyle)
}

func applyObservabilityEnv(cfg *ObservabilityConfig) {
	cfg.LogLevel = getEnv("CHAPTERS_LOG_LEVEL", cfg.LogLevel)
	cfg.MetricsEnabled = getEnvBool("CHAPTERS_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.OTelEnabled = getEnvBool("CHAPTERS_OTEL_ENABLED", cfg.OTelEnabled)
	cfg.OTelEndpoint = getEnv("CHAPTERS_OTEL_ENDPOINT", cfg.OTelEndpoint)
	cfg.OTelServiceName = getEnv("CHAPTERS_OTEL_SERVICE_NAME", cfg.OTelServiceName)
	cfg.OTelServiceVersion = getEnv("CHAPTERS_OTEL_SERVICE_VERSION", cfg.OTelServiceVersion)
	cfg.OTelInsecure = getEnvBool("CHAPTERS_OTEL_INSECURE", cfg.OTelInsecure)
	cfg.OTelSampleRatio = getEnvFloat("CHAPTERS_OTEL_SAMPLE_RATIO", cfg.OTelSampleRatio)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	// Validate server config
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.MaxBodyBytes <= 0 {
		return fmt.Errorf("max body bytes must be positive")
	}

	// Validate storage config based on type
	switch c.Storage.Type {
	case storage.TypeMemory:
	case storage.TypeSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite path is required for sqlite storage")
		}
	case storage.TypePostgres:
		if c.Storage.PostgresURL == "" {
			return fmt.Errorf("postgres URL is required for postgres storage")
		}
	default:
		return fmt.Errorf("invalid storage type: %s (must be memory, sqlite, or postgres)", c.Storage.Type)
	}

	switch c.Cache.Type {
	case cache.TypeNone, cache.TypeMemory:
	case cache.TypeRedis, cache.TypeTiered:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("redis URL is required for %s cache", c.Cache.Type)
		}
	default:
		return fmt.Errorf("invalid cache type: %s (must be none, memory, redis, or tiered)", c.Cache.Type)
	}

	if (c.Identity.OIDC.IssuerURL == "") != (c.Identity.OIDC.ClientID == "") {
		return fmt.Errorf("OIDC issuer URL and client ID must be set together")
	}

	if c.Engine.AssignRetries < 1 {
		return fmt.Errorf("assign retries must be at least 1")
	}

	if c.RateLimit.Enabled && (c.RateLimit.CallerRequests <= 0 || c.RateLimit.AnonymousRequests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit requests and window must be positive when rate limiting is enabled")
	}
	if _, err := middleware.ParseTrustedProxies(c.RateLimit.TrustedProxies); err != nil {
		return err
	}

	if err := c.validateAudit(); err != nil {
		return err
	}

	if c.Maintenance.Enabled {
		if _, err := cron.ParseStandard(c.Maintenance.AuditSchedule); err != nil {
			return fmt.Errorf("invalid audit schedule %q: %w", c.Maintenance.AuditSchedule, err)
		}
		if _, err := cron.ParseStandard(c.Maintenance.CacheWarmSchedule); err != nil {
			return fmt.Errorf("invalid cache warm schedule %q: %w", c.Maintenance.CacheWarmSchedule, err)
		}
	}

	// Validate OpenTelemetry config
	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
	}

	return nil
}

func (c *Config) validateAudit() error {
	if c.Audit.Database && c.Storage.Type != storage.TypePostgres {
		return errors.New("database audit requires postgres storage")
	}
	if c.Audit.Retention < 0 {
		return errors.New("audit retention must not be negative")
	}
	a := c.Audit.Archive
	if a.Bucket != "" && (a.AccessKey == "") != (a.SecretKey == "") {
		return errors.New("audit archive access key and secret key must be set together")
	}
	return nil
}

// splitList splits a comma separated value, dropping blanks
func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 returns an int64 environment variable or a default
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat returns a float64 environment variable or a default
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
