package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/observability"
	"github.com/platinummonkey/chapteradmin/pkg/storage"
)

// TestGetEnv tests the getEnv helper function
func TestGetEnv(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		defaultValue string
		envValue     string
		want         string
	}{
		{
			name:         "returns env value when set",
			key:          "TEST_VAR",
			defaultValue: "default",
			envValue:     "custom",
			want:         "custom",
		},
		{
			name:         "returns default when env not set",
			key:          "TEST_VAR_NOT_SET",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			}
			if got := getEnv(tt.key, tt.defaultValue); got != tt.want {
				t.Errorf("getEnv() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvBool tests the getEnvBool helper function
func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name         string
		defaultValue bool
		envValue     string
		want         bool
	}{
		{name: "true", envValue: "true", want: true},
		{name: "1", envValue: "1", want: true},
		{name: "TRUE", envValue: "TRUE", want: true},
		{name: "false", defaultValue: true, envValue: "false", want: false},
		{name: "garbage is false", defaultValue: true, envValue: "yes please", want: false},
		{name: "default when unset", defaultValue: true, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv("TEST_BOOL", tt.envValue)
			}
			if got := getEnvBool("TEST_BOOL", tt.defaultValue); got != tt.want {
				t.Errorf("getEnvBool() = %v, want %v", got, tt.want)
			}
		})
	}
}

// TestGetEnvNumbers covers the integer, float and duration helpers
func TestGetEnvNumbers(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	t.Setenv("TEST_BAD_INT", "forty-two")
	t.Setenv("TEST_INT64", "9000000000")
	t.Setenv("TEST_FLOAT", "0.25")
	t.Setenv("TEST_DURATION", "90s")
	t.Setenv("TEST_BAD_DURATION", "ninety")

	if got := getEnvInt("TEST_INT", 1); got != 42 {
		t.Errorf("getEnvInt() = %d, want 42", got)
	}
	if got := getEnvInt("TEST_BAD_INT", 7); got != 7 {
		t.Errorf("getEnvInt() on invalid value = %d, want default 7", got)
	}
	if got := getEnvInt64("TEST_INT64", 0); got != 9000000000 {
		t.Errorf("getEnvInt64() = %d, want 9000000000", got)
	}
	if got := getEnvFloat("TEST_FLOAT", 1); got != 0.25 {
		t.Errorf("getEnvFloat() = %v, want 0.25", got)
	}
	if got := getEnvDuration("TEST_DURATION", time.Second); got != 90*time.Second {
		t.Errorf("getEnvDuration() = %v, want 90s", got)
	}
	if got := getEnvDuration("TEST_BAD_DURATION", time.Second); got != time.Second {
		t.Errorf("getEnvDuration() on invalid value = %v, want default 1s", got)
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" alice, ,bob,carol ")
	want := []string{"alice", "bob", "carol"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("splitList() = %v, want %v", got, want)
	}
	if got := splitList(""); len(got) != 0 {
		t.Errorf("splitList(\"\") = %v, want empty", got)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Default().Validate() = %v, want nil", err)
	}
	if cfg.Server.Addr() != "0.0.0.0:8080" {
		t.Errorf("Addr() = %s, want 0.0.0.0:8080", cfg.Server.Addr())
	}
	if cfg.Storage.Type != storage.TypeMemory {
		t.Errorf("Storage.Type = %s, want memory", cfg.Storage.Type)
	}
	if cfg.Observability.Level() != observability.InfoLevel {
		t.Errorf("Level() = %v, want INFO", cfg.Observability.Level())
	}
	opts := cfg.Engine.Options()
	if opts.AssignRetries != 3 || opts.CallTimeout != 5*time.Second {
		t.Errorf("Engine.Options() = %+v", opts)
	}
	if m, err := cfg.RateLimit.Middleware(); err != nil || m == nil {
		t.Errorf("Middleware() = %v, %v, want a limiter when enabled", m, err)
	}
	cfg.RateLimit.TrustedProxies = []string{"10.0.0.0/33"}
	if _, err := cfg.RateLimit.Middleware(); err == nil {
		t.Error("Middleware() should reject a bad trusted proxy")
	}
	cfg.RateLimit.Enabled = false
	if m, _ := cfg.RateLimit.Middleware(); m != nil {
		t.Error("Middleware() != nil, want nil when disabled")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv(FileEnv, "")
	t.Setenv("CHAPTERS_PORT", "9999")
	t.Setenv("CHAPTERS_STORAGE_TYPE", "sqlite")
	t.Setenv("CHAPTERS_SQLITE_PATH", "/var/lib/chapters/chapters.db")
	t.Setenv("CHAPTERS_CACHE_TYPE", "tiered")
	t.Setenv("CHAPTERS_REDIS_URL", "redis://cache:6379/1")
	t.Setenv("CHAPTERS_SYSTEM_ADMINS", "root, ops")
	t.Setenv("CHAPTERS_DEV_TOKENS", "tok-a=alice,broken,tok-b=bob")
	t.Setenv("CHAPTERS_ASSIGN_RETRIES", "5")
	t.Setenv("CHAPTERS_RATE_LIMIT_ENABLED", "false")
	t.Setenv("CHAPTERS_RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.5")
	t.Setenv("CHAPTERS_LOG_LEVEL", "debug")
	t.Setenv("CHAPTERS_OTEL_SAMPLE_RATIO", "0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != "9999" {
		t.Errorf("Server.Port = %s, want 9999", cfg.Server.Port)
	}
	if cfg.Storage.Type != storage.TypeSQLite || cfg.Storage.SQLitePath != "/var/lib/chapters/chapters.db" {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Cache.Type != "tiered" || cfg.Cache.RedisURL != "redis://cache:6379/1" {
		t.Errorf("Cache = %+v", cfg.Cache)
	}
	if strings.Join(cfg.Identity.SystemAdmins, ",") != "root,ops" {
		t.Errorf("SystemAdmins = %v", cfg.Identity.SystemAdmins)
	}
	if len(cfg.Identity.DevTokens) != 2 || cfg.Identity.DevTokens["tok-b"] != "bob" {
		t.Errorf("DevTokens = %v", cfg.Identity.DevTokens)
	}
	if cfg.Engine.AssignRetries != 5 {
		t.Errorf("AssignRetries = %d, want 5", cfg.Engine.AssignRetries)
	}
	if cfg.RateLimit.Enabled {
		t.Error("RateLimit.Enabled = true, want false")
	}
	if got := cfg.RateLimit.TrustedProxies; len(got) != 2 || got[0] != "10.0.0.0/8" || got[1] != "192.0.2.5" {
		t.Errorf("RateLimit.TrustedProxies = %v", got)
	}
	if cfg.Observability.Level() != observability.DebugLevel {
		t.Errorf("Level() = %v, want DEBUG", cfg.Observability.Level())
	}
	if cfg.Observability.OTel().SampleRatio != 0.1 {
		t.Errorf("OTel().SampleRatio = %v, want 0.1", cfg.Observability.OTel().SampleRatio)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chapters.yaml")
	data := `
server:
  port: "7070"
  readTimeout: 5s
storage:
  type: postgres
  postgresUrl: postgres://db/chapters?sslmode=disable
  postgresReplicaUrls:
    - postgres://replica/chapters?sslmode=disable
identity:
  systemAdmins: [root]
  oidc:
    issuerUrl: https://issuer.example.com
    clientId: chapters
audit:
  database: true
  retention: 720h
  archive:
    bucket: audit-archive
maintenance:
  auditSchedule: "30 2 * * *"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	// Environment wins over the file
	t.Setenv("CHAPTERS_PORT", "6060")

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if cfg.Server.Port != "6060" {
		t.Errorf("Server.Port = %s, want env override 6060", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Errorf("ReadTimeout = %v, want 5s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 15*time.Second {
		t.Errorf("WriteTimeout = %v, want default 15s", cfg.Server.WriteTimeout)
	}
	if cfg.Storage.Type != storage.TypePostgres || len(cfg.Storage.PostgresReplicaURLs) != 1 {
		t.Errorf("Storage = %+v", cfg.Storage)
	}
	if cfg.Storage.PostgresMaxConns != 20 {
		t.Errorf("PostgresMaxConns = %d, want default 20", cfg.Storage.PostgresMaxConns)
	}
	if cfg.Identity.OIDC.EmailClaim != "email" {
		t.Errorf("EmailClaim = %q, want default email", cfg.Identity.OIDC.EmailClaim)
	}
	if !cfg.Audit.Database || cfg.Audit.Retention != 720*time.Hour || cfg.Audit.Archive.Bucket != "audit-archive" {
		t.Errorf("Audit = %+v", cfg.Audit)
	}
	if cfg.Audit.Archive.Region != "us-east-1" {
		t.Errorf("Archive.Region = %s, want default us-east-1", cfg.Audit.Archive.Region)
	}
	if cfg.Maintenance.AuditSchedule != "30 2 * * *" {
		t.Errorf("AuditSchedule = %s", cfg.Maintenance.AuditSchedule)
	}
}

func TestLoadFile_Errors(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil ||
		!strings.Contains(err.Error(), "failed to read config file") {
		t.Errorf("LoadFile(missing) error = %v", err)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("server: [not, a, map"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(bad); err == nil || !strings.Contains(err.Error(), "failed to parse config file") {
		t.Errorf("LoadFile(bad) error = %v", err)
	}

	invalid := filepath.Join(t.TempDir(), "invalid.yaml")
	if err := os.WriteFile(invalid, []byte("storage:\n  type: filesystem\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(invalid); err == nil || !strings.Contains(err.Error(), "configuration validation failed") {
		t.Errorf("LoadFile(invalid) error = %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "missing server port",
			mutate:  func(c *Config) { c.Server.Port = "" },
			wantErr: "server port is required",
		},
		{
			name:    "non-positive body limit",
			mutate:  func(c *Config) { c.Server.MaxBodyBytes = 0 },
			wantErr: "max body bytes must be positive",
		},
		{
			name:    "unknown storage",
			mutate:  func(c *Config) { c.Storage.Type = "filesystem" },
			wantErr: "invalid storage type: filesystem (must be memory, sqlite, or postgres)",
		},
		{
			name: "sqlite without path",
			mutate: func(c *Config) {
				c.Storage.Type = storage.TypeSQLite
				c.Storage.SQLitePath = ""
			},
			wantErr: "sqlite path is required for sqlite storage",
		},
		{
			name:    "postgres without url",
			mutate:  func(c *Config) { c.Storage.Type = storage.TypePostgres },
			wantErr: "postgres URL is required for postgres storage",
		},
		{
			name:    "unknown cache",
			mutate:  func(c *Config) { c.Cache.Type = "memcached" },
			wantErr: "invalid cache type: memcached (must be none, memory, redis, or tiered)",
		},
		{
			name: "redis cache without url",
			mutate: func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = ""
			},
			wantErr: "redis URL is required for redis cache",
		},
		{
			name:    "oidc issuer without client",
			mutate:  func(c *Config) { c.Identity.OIDC.IssuerURL = "https://issuer" },
			wantErr: "OIDC issuer URL and client ID must be set together",
		},
		{
			name:    "zero assign retries",
			mutate:  func(c *Config) { c.Engine.AssignRetries = 0 },
			wantErr: "assign retries must be at least 1",
		},
		{
			name:    "rate limit without window",
			mutate:  func(c *Config) { c.RateLimit.Window = 0 },
			wantErr: "rate limit requests and window must be positive when rate limiting is enabled",
		},
		{
			name:    "bad trusted proxy",
			mutate:  func(c *Config) { c.RateLimit.TrustedProxies = []string{"proxy.internal"} },
			wantErr: `invalid trusted proxy "proxy.internal"`,
		},
		{
			name:    "database audit on memory storage",
			mutate:  func(c *Config) { c.Audit.Database = true },
			wantErr: "database audit requires postgres storage",
		},
		{
			name: "archive with half a key pair",
			mutate: func(c *Config) {
				c.Audit.Archive.Bucket = "b"
				c.Audit.Archive.AccessKey = "AKIA"
			},
			wantErr: "audit archive access key and secret key must be set together",
		},
		{
			name:    "bad audit schedule",
			mutate:  func(c *Config) { c.Maintenance.AuditSchedule = "every night" },
			wantErr: `invalid audit schedule "every night"`,
		},
		{
			name: "bad schedule ignored when maintenance disabled",
			mutate: func(c *Config) {
				c.Maintenance.Enabled = false
				c.Maintenance.CacheWarmSchedule = "often"
			},
		},
		{
			name: "otel enabled without endpoint",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelEndpoint = ""
			},
			wantErr: "OpenTelemetry endpoint is required when OTel is enabled",
		},
		{
			name: "otel enabled without service name",
			mutate: func(c *Config) {
				c.Observability.OTelEnabled = true
				c.Observability.OTelServiceName = ""
			},
			wantErr: "OpenTelemetry service name is required when OTel is enabled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}
