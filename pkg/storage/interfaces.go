package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/observability"
	"github.com/platinummonkey/chapteradmin/pkg/storage/memory"
	"github.com/platinummonkey/chapteradmin/pkg/storage/postgres"
	"github.com/platinummonkey/chapteradmin/pkg/storage/sqlite"
)

// Backend types
const (
	TypeMemory   = "memory"
	TypePostgres = "postgres"
	TypeSQLite   = "sqlite"
)

// Backend is a chapters.Store with health and lifecycle hooks
type Backend interface {
	chapters.Store
	Ping(ctx context.Context) error
	Close() error
}

// Config for storage backend
type Config struct {
	Type string `yaml:"type"` // "memory", "sqlite", "postgres"

	// SQLite database file; ":memory:" for a throwaway database
	SQLitePath string `yaml:"sqlitePath"`

	// PostgreSQL config
	PostgresURL         string        `yaml:"postgresUrl"`
	PostgresReplicaURLs []string      `yaml:"postgresReplicaUrls"`
	PostgresMaxConns    int           `yaml:"postgresMaxConns"`
	PostgresMinConns    int           `yaml:"postgresMinConns"`
	PostgresTimeout     time.Duration `yaml:"postgresTimeout"`
	ReplicaReads        bool          `yaml:"replicaReads"`
	AutoMigrate         bool          `yaml:"autoMigrate"`
}

// DefaultConfig returns an in-memory configuration
func DefaultConfig() Config {
	return Config{
		Type:             TypeMemory,
		SQLitePath:       "chapters.db",
		PostgresMaxConns: 20,
		PostgresMinConns: 2,
		PostgresTimeout:  10 * time.Second,
		AutoMigrate:      true,
	}
}

// Open creates the backend named by cfg.Type. SQLite applies its schema on
// open. For postgres it connects,
// optionally migrates, and starts the replica health routine bound to ctx.
func Open(ctx context.Context, cfg Config, logger *observability.Logger) (Backend, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	switch cfg.Type {
	case "", TypeMemory:
		return memory.New(), nil
	case TypeSQLite:
		return sqlite.Open(ctx, cfg.SQLitePath)
	case TypePostgres:
		return openPostgres(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
	}
}

func openPostgres(ctx context.Context, cfg Config, logger *observability.Logger) (*postgres.Store, error) {
	cm, err := postgres.NewConnectionManager(ctx, postgres.ConnectionConfig{
		PrimaryURL:  cfg.PostgresURL,
		ReplicaURLs: cfg.PostgresReplicaURLs,
		MaxConns:    cfg.PostgresMaxConns,
		MinConns:    cfg.PostgresMinConns,
		Timeout:     cfg.PostgresTimeout,
		MaxLifetime: time.Hour,
		MaxIdleTime: 10 * time.Minute,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if cfg.AutoMigrate {
		if err := postgres.RunMigrations(ctx, cm.Primary(), logger); err != nil {
			_ = cm.Close()
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}

	if len(cfg.PostgresReplicaURLs) > 0 {
		if cm.ReplicaCount() == 0 {
			logger.Warn("no read replica is reachable; reads go to the primary")
		}
		cm.StartHealthCheckRoutine(ctx, 30*time.Second)
	}

	return postgres.New(cm, postgres.WithReplicaReads(cfg.ReplicaReads)), nil
}
