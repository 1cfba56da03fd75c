// Package config loads chapteradmin configuration.
//
// Values are layered: built-in defaults, then an optional YAML file named by
// CHAPTERS_CONFIG_FILE, then CHAPTERS_* environment variables. The result is
// validated before it is returned.
//
// # Configuration Structure
//
// Server settings:
//
//	CHAPTERS_HOST="0.0.0.0"
//	CHAPTERS_PORT="8080"
//	CHAPTERS_READ_TIMEOUT="15s"
//	CHAPTERS_MAX_BODY_BYTES="1048576"
//
// Storage settings:
//
//	CHAPTERS_STORAGE_TYPE="postgres"  # memory, sqlite, postgres
//	CHAPTERS_SQLITE_PATH="/var/lib/chapters/chapters.db"
//	CHAPTERS_POSTGRES_URL="postgres://localhost/chapters"
//	CHAPTERS_POSTGRES_REPLICA_URLS="postgres://r1/chapters,postgres://r2/chapters"
//
// Cache settings:
//
//	CHAPTERS_CACHE_TYPE="tiered"  # none, memory, redis, tiered
//	CHAPTERS_REDIS_URL="redis://localhost:6379/0"
//
// Identity settings:
//
//	CHAPTERS_SYSTEM_ADMINS="alice,bob"
//	CHAPTERS_ADMINS_FILE="/etc/chapters/admins.yaml"
//	CHAPTERS_OIDC_ISSUER_URL="https://accounts.example.com"
//	CHAPTERS_OIDC_CLIENT_ID="chapteradmin"
//	CHAPTERS_DEV_TOKENS="dev-token=alice"
//
// Audit and maintenance settings:
//
//	CHAPTERS_AUDIT_DATABASE="true"
//	CHAPTERS_AUDIT_RETENTION="8760h"
//	CHAPTERS_AUDIT_ARCHIVE_BUCKET="chapters-audit"
//	CHAPTERS_MAINTENANCE_AUDIT_SCHEDULE="0 3 * * *"
//
// Observability settings:
//
//	CHAPTERS_LOG_LEVEL="info"  # debug, info, warn, error
//	CHAPTERS_METRICS_ENABLED="true"
//	CHAPTERS_OTEL_ENABLED="true"
//	CHAPTERS_OTEL_ENDPOINT="otel-collector:4317"
//
// The same settings in a file:
//
//	server:
//	  port: "8080"
//	storage:
//	  type: postgres
//	  postgresUrl: postgres://localhost/chapters
//	identity:
//	  systemAdmins: [alice]
//
// # Usage Example
//
//	cfg, err := config.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	backend, err := storage.Open(ctx, cfg.Storage, logger)
package config
