package middleware

import (
	"context"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
	"github.com/platinummonkey/chapteradmin/pkg/httputil"
)

// RateLimitConfig is a request budget per key
type RateLimitConfig struct {
	// RequestsPerWindow refills evenly over WindowDuration
	RequestsPerWindow int
	WindowDuration    time.Duration
	// BurstSize is extra headroom on top of a full window
	BurstSize int
}

// DefaultRateLimitConfig is the budget for anonymous clients
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 100,
		WindowDuration:    time.Minute,
		BurstSize:         10,
	}
}

// PerCallerRateLimitConfig is the budget for authenticated callers
func PerCallerRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		RequestsPerWindow: 600,
		WindowDuration:    time.Minute,
		BurstSize:         50,
	}
}

func (c *RateLimitConfig) limit() rate.Limit {
	return rate.Limit(float64(c.RequestsPerWindow) / c.WindowDuration.Seconds())
}

func (c *RateLimitConfig) capacity() int {
	return c.RequestsPerWindow + c.BurstSize
}

// RateLimiter keeps one token bucket per key. Buckets are per process, so
// each replica enforces its own budget.
type RateLimiter struct {
	config *RateLimitConfig

	mu      sync.Mutex
	buckets map[string]*visitor
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter; nil selects DefaultRateLimitConfig
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}
	return &RateLimiter{
		config:  config,
		buckets: make(map[string]*visitor),
	}
}

func (rl *RateLimiter) visit(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	v, ok := rl.buckets[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rl.config.limit(), rl.config.capacity())}
		rl.buckets[key] = v
	}
	v.lastSeen = time.Now()
	return v.limiter
}

// Allow takes one token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	return rl.visit(key).Allow()
}

// Remaining is the whole number of tokens left for key
func (rl *RateLimiter) Remaining(key string) int {
	rl.mu.Lock()
	v, ok := rl.buckets[key]
	rl.mu.Unlock()
	if !ok {
		return rl.config.capacity()
	}
	return int(math.Max(0, math.Floor(v.limiter.Tokens())))
}

// Cleanup forgets keys idle for two windows; by then their bucket is full
func (rl *RateLimiter) Cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-2 * rl.config.WindowDuration)
	for key, v := range rl.buckets {
		if v.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
}

// StartCleanup runs Cleanup once per window until ctx is done
func (rl *RateLimiter) StartCleanup(ctx context.Context) {
	ticker := time.NewTicker(rl.config.WindowDuration)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				rl.Cleanup()
			case <-ctx.Done():
				return
			}
		}
	}()
}

// RateLimitMiddleware limits authenticated callers by id and throttles
// client addresses that keep failing authentication
type RateLimitMiddleware struct {
	callerLimiter    *RateLimiter
	anonymousLimiter *RateLimiter
	trustedProxies   []netip.Prefix
}

// NewRateLimitMiddleware creates a middleware with separate budgets. No
// proxy is trusted until TrustProxies is called.
func NewRateLimitMiddleware(caller, anonymous *RateLimitConfig) *RateLimitMiddleware {
	return &RateLimitMiddleware{
		callerLimiter:    NewRateLimiter(caller),
		anonymousLimiter: NewRateLimiter(anonymous),
	}
}

// ParseTrustedProxies accepts CIDRs and bare addresses
func ParseTrustedProxies(entries []string) ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if strings.Contains(entry, "/") {
			p, err := netip.ParsePrefix(entry)
			if err != nil {
				return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// TrustProxies honours X-Forwarded-For and X-Real-IP only on requests whose
// peer address is one of entries
func (m *RateLimitMiddleware) TrustProxies(entries ...string) error {
	prefixes, err := ParseTrustedProxies(entries)
	if err != nil {
		return err
	}
	m.trustedProxies = prefixes
	return nil
}

// StartCleanup prunes idle buckets until ctx is done
func (m *RateLimitMiddleware) StartCleanup(ctx context.Context) {
	m.callerLimiter.StartCleanup(ctx)
	m.anonymousLimiter.StartCleanup(ctx)
}

// FailedAuthHandler runs in front of authentication. Every 401 costs the
// client address one token of the anonymous budget; once the bucket is empty
// the address gets 429 before its token is verified.
func (m *RateLimitMiddleware) FailedAuthHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := "ip:" + m.clientIP(r)
		if m.anonymousLimiter.Remaining(key) < 1 {
			rejectRequest(w, m.anonymousLimiter.config)
			return
		}

		rec := httputil.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)
		if rec.StatusCode == http.StatusUnauthorized {
			m.anonymousLimiter.Allow(key)
		}
	})
}

// Handler runs after authentication and charges the caller's budget.
// Requests without a caller fall back to the address budget.
func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limiter, key := m.anonymousLimiter, "ip:"+m.clientIP(r)
		if callerID := contextkeys.GetCallerID(r.Context()); callerID != "" {
			limiter, key = m.callerLimiter, "caller:"+callerID
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(limiter.config.RequestsPerWindow))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(limiter.config.WindowDuration).Unix(), 10))

		if !limiter.Allow(key) {
			rejectRequest(w, limiter.config)
			return
		}

		h.Set("X-RateLimit-Remaining", strconv.Itoa(limiter.Remaining(key)))
		next.ServeHTTP(w, r)
	})
}

func rejectRequest(w http.ResponseWriter, config *RateLimitConfig) {
	w.Header().Set("X-RateLimit-Remaining", "0")
	w.Header().Set("Retry-After", strconv.Itoa(int(config.WindowDuration.Seconds())))
	httputil.WriteErrorMessage(w, http.StatusTooManyRequests, "rate limit exceeded")
}

// clientIP is the peer address unless the peer is a trusted proxy. Behind
// trusted proxies it is the rightmost X-Forwarded-For hop that is not itself
// a trusted proxy, then X-Real-IP.
func (m *RateLimitMiddleware) clientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !m.trusted(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop != "" && !m.trusted(hop) {
				return hop
			}
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func (m *RateLimitMiddleware) trusted(ip string) bool {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range m.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}
