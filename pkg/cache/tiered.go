package cache

import (
	"context"
	"time"
)

// Remote is the shared second tier
type Remote interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Ping(ctx context.Context) error
	Close() error
}

// Tiered reads through a short-lived local L1 in front of a shared L2.
// L1 is per process, so its TTL bounds how long another instance's
// invalidation can go unseen.
type Tiered struct {
	l1 *LocalCache
	l2 Remote
}

// NewTiered combines a local and a remote cache
func NewTiered(l1 *LocalCache, l2 Remote) *Tiered {
	return &Tiered{l1: l1, l2: l2}
}

func (t *Tiered) Get(ctx context.Context, key string) ([]byte, error) {
	if v, _ := t.l1.Get(ctx, key); v != nil {
		return v, nil
	}
	v, err := t.l2.Get(ctx, key)
	if err != nil || v == nil {
		return nil, err
	}
	_ = t.l1.Set(ctx, key, v, t.l1.maxTTL)
	return v, nil
}

func (t *Tiered) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = t.l1.Set(ctx, key, value, ttl)
	return t.l2.Set(ctx, key, value, ttl)
}

// Delete always clears L1, even when L2 fails
func (t *Tiered) Delete(ctx context.Context, keys ...string) error {
	_ = t.l1.Delete(ctx, keys...)
	return t.l2.Delete(ctx, keys...)
}

func (t *Tiered) Ping(ctx context.Context) error {
	return t.l2.Ping(ctx)
}

func (t *Tiered) Close() error {
	_ = t.l1.Close()
	return t.l2.Close()
}
