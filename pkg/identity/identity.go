// Package identity answers who the caller is and whether a user is a
// global (system) administrator.
//
// Authenticators turn a bearer token into a contextkeys.Caller. Providers
// implement chapters.IdentityProvider and can be combined with Any.
package identity

import (
	"context"
	"errors"
	"sync"

	"github.com/platinummonkey/chapteradmin/pkg/chapters"
	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
)

// ErrInvalidToken means the bearer token could not be verified
var ErrInvalidToken = errors.New("invalid or expired token")

// Authenticator verifies a bearer token
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (contextkeys.Caller, error)
}

// Static is a fixed allowlist of system administrator ids
type Static struct {
	mu     sync.RWMutex
	admins map[string]bool
}

// NewStatic creates an allowlist provider
func NewStatic(ids ...string) *Static {
	s := &Static{}
	s.Set(ids)
	return s
}

// Set replaces the allowlist
func (s *Static) Set(ids []string) {
	admins := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			admins[id] = true
		}
	}
	s.mu.Lock()
	s.admins = admins
	s.mu.Unlock()
}

// Len is the number of ids on the allowlist
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.admins)
}

func (s *Static) IsGlobalAdmin(_ context.Context, userID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.admins[userID], nil
}

// Claims trusts the GlobalAdmin flag of the authenticated caller, but only
// when asked about the caller itself.
type Claims struct{}

func (Claims) IsGlobalAdmin(ctx context.Context, userID string) (bool, error) {
	caller, ok := contextkeys.GetCaller(ctx)
	if !ok || caller.ID != userID {
		return false, nil
	}
	return caller.GlobalAdmin, nil
}

type anyOf []chapters.IdentityProvider

// Any reports a user as global admin if any provider does. The first
// provider error stops the scan.
func Any(providers ...chapters.IdentityProvider) chapters.IdentityProvider {
	return anyOf(providers)
}

func (a anyOf) IsGlobalAdmin(ctx context.Context, userID string) (bool, error) {
	for _, p := range a {
		ok, err := p.IsGlobalAdmin(ctx, userID)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// StaticTokens maps opaque tokens to callers; for development and tests
type StaticTokens map[string]contextkeys.Caller

func (t StaticTokens) Authenticate(_ context.Context, token string) (contextkeys.Caller, error) {
	caller, ok := t[token]
	if !ok || caller.ID == "" {
		return contextkeys.Caller{}, ErrInvalidToken
	}
	return caller, nil
}

var (
	_ chapters.IdentityProvider = (*Static)(nil)
	_ chapters.IdentityProvider = Claims{}
	_ Authenticator             = StaticTokens(nil)
)
