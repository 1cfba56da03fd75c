package chapters

import (
	"context"
	"encoding/json"
	"strings"
	"time"
)

// Cache key families
const (
	familySchool = "school"
	familyUser   = "user"
	familyAll    = "all"
)

const keyPrefix = "chapter-admins:"

func schoolAdminsKey(schoolID string) string { return keyPrefix + "school:" + schoolID }
func userSchoolsKey(userID string) string    { return keyPrefix + "user:" + userID }
func allSchoolsKey() string                  { return keyPrefix + "all" }

// readThrough serves key from the cache and falls back to load on a miss or
// on any cache failure, then repopulates the cache best effort. Cache errors
// are logged and counted, never returned. Concurrent misses for one key share
// a single load.
func readThrough[T any](ctx context.Context, e *Engine, family, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	if v, ok := cacheGet[T](ctx, e, family, key); ok {
		return v, nil
	}

	shared, err, _ := e.flight.Do(key, func() (interface{}, error) {
		// The first caller's cancellation must not fail callers sharing the load
		lctx := context.WithoutCancel(ctx)
		if e.caching() {
			lctx = WithPrimaryRead(lctx)
		}
		v, err := load(lctx)
		if err != nil {
			return v, err
		}
		cacheSet(ctx, e, family, key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return shared.(T), nil
}

// caching is false for NopCache and types embedding it
func (e *Engine) caching() bool {
	_, nop := e.cache.(interface{ discardsWrites() })
	return !nop
}

func cacheGet[T any](ctx context.Context, e *Engine, family, key string) (T, bool) {
	var zero T

	cctx, cancel := context.WithTimeout(ctx, e.opts.CacheTimeout)
	defer cancel()

	data, err := e.cache.Get(cctx, key)
	if err != nil {
		e.cacheFailure(ctx, family, key, "get", err)
		return zero, false
	}
	if data == nil {
		e.metrics.RecordCacheMiss(family)
		return zero, false
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		e.cacheFailure(ctx, family, key, "decode", err)
		return zero, false
	}
	e.metrics.RecordCacheHit(family)
	return v, true
}

func cacheSet(ctx context.Context, e *Engine, family, key string, v interface{}, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		e.cacheFailure(ctx, family, key, "encode", err)
		return
	}

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CacheTimeout)
	defer cancel()
	if err := e.cache.Set(cctx, key, data, ttl); err != nil {
		e.cacheFailure(ctx, family, key, "set", err)
	}
}

// invalidate drops keys after a committed write. Failures only degrade
// freshness until the TTL expires.
func (e *Engine) invalidate(ctx context.Context, keys ...string) {
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.CacheTimeout)
	defer cancel()
	if err := e.cache.Delete(cctx, keys...); err != nil {
		e.cacheFailure(ctx, "invalidate", strings.Join(keys, ","), "delete", err)
	}
}

// assignmentKeys are the cache entries an assignment change affects
func assignmentKeys(a *Assignment) []string {
	return []string{schoolAdminsKey(a.SchoolID), userSchoolsKey(a.UserID), allSchoolsKey()}
}

func (e *Engine) cacheFailure(ctx context.Context, family, key, op string, err error) {
	e.metrics.RecordCacheError(family, op)
	e.log(ctx).WithFields(map[string]interface{}{
		"cache_key": key,
		"operation": op,
	}).WithError(err).Warn("Cache operation failed, falling back to store")
}
