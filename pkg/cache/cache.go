// Package cache provides chapters.Cache implementations: Redis, a local
// expiring LRU, and a two-tier combination of both.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
)

// Cache types
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeRedis  = "redis"
	TypeTiered = "tiered"
)

// Config selects and tunes the cache backend
type Config struct {
	Type string `yaml:"type"`

	RedisURL        string `yaml:"redisUrl"`
	RedisPassword   string `yaml:"redisPassword"`
	RedisDB         int    `yaml:"redisDb"`
	RedisMaxRetries int    `yaml:"redisMaxRetries"`
	RedisPoolSize   int    `yaml:"redisPoolSize"`
	KeyPrefix       string `yaml:"keyPrefix"`

	LocalSize   int           `yaml:"localSize"`
	LocalMaxTTL time.Duration `yaml:"localMaxTtl"`
}

// DefaultConfig returns a local-only cache configuration
func DefaultConfig() Config {
	return Config{
		Type:            TypeMemory,
		RedisURL:        "redis://localhost:6379/0",
		RedisMaxRetries: 3,
		RedisPoolSize:   10,
		KeyPrefix:       "chapters:",
		LocalSize:       4096,
		LocalMaxTTL:     30 * time.Second,
	}
}

// Backend is a chapters.Cache with lifecycle and health hooks
type Backend interface {
	chapters.Cache
	Ping(ctx context.Context) error
	Close() error
}

type nopBackend struct{ chapters.NopCache }

func (nopBackend) Ping(context.Context) error { return nil }
func (nopBackend) Close() error               { return nil }

// Open builds the backend named by cfg.Type
func Open(ctx context.Context, cfg Config) (Backend, error) {
	switch cfg.Type {
	case "", TypeNone:
		return nopBackend{}, nil
	case TypeMemory:
		return NewLocalCache(cfg.LocalSize, cfg.LocalMaxTTL), nil
	case TypeRedis:
		return NewRedisCache(ctx, cfg)
	case TypeTiered:
		remote, err := NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return NewTiered(NewLocalCache(cfg.LocalSize, cfg.LocalMaxTTL), remote), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cfg.Type)
	}
}

var (
	_ Backend = (*RedisCache)(nil)
	_ Backend = (*LocalCache)(nil)
	_ Backend = (*Tiered)(nil)
)
