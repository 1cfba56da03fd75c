package identity

import (
	"context"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/platinummonkey/chapteradmin/pkg/contextkeys"
)

// OIDCConfig configures bearer ID token verification
type OIDCConfig struct {
	IssuerURL       string `yaml:"issuerUrl"`
	ClientID        string `yaml:"clientId"`
	SkipIssuerCheck bool   `yaml:"skipIssuerCheck"`

	// AdminClaim names the claim that marks system administrators. A boolean
	// true, or a string or string list containing AdminValue, grants it.
	AdminClaim string `yaml:"adminClaim"`
	AdminValue string `yaml:"adminValue"`

	// EmailClaim defaults to "email"
	EmailClaim string `yaml:"emailClaim"`
}

// OIDCAuthenticator verifies ID tokens issued by an OpenID Connect provider
type OIDCAuthenticator struct {
	config   OIDCConfig
	verifier *oidc.IDTokenVerifier
}

// NewOIDCAuthenticator discovers the issuer and builds a verifier
func NewOIDCAuthenticator(ctx context.Context, config OIDCConfig) (*OIDCAuthenticator, error) {
	if config.IssuerURL == "" || config.ClientID == "" {
		return nil, fmt.Errorf("OIDC issuer URL and client ID are required")
	}

	provider, err := oidc.NewProvider(ctx, config.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	verifier := provider.Verifier(&oidc.Config{
		ClientID:        config.ClientID,
		SkipIssuerCheck: config.SkipIssuerCheck,
	})
	return NewOIDCAuthenticatorWithVerifier(verifier, config), nil
}

// NewOIDCAuthenticatorWithVerifier uses an existing verifier
func NewOIDCAuthenticatorWithVerifier(verifier *oidc.IDTokenVerifier, config OIDCConfig) *OIDCAuthenticator {
	if config.EmailClaim == "" {
		config.EmailClaim = "email"
	}
	return &OIDCAuthenticator{config: config, verifier: verifier}
}

// Authenticate verifies the raw ID token and maps its claims to a Caller
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, rawIDToken string) (contextkeys.Caller, error) {
	idToken, err := a.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return contextkeys.Caller{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return contextkeys.Caller{}, fmt.Errorf("%w: failed to parse claims: %v", ErrInvalidToken, err)
	}

	if idToken.Subject == "" {
		return contextkeys.Caller{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	email, _ := claims[a.config.EmailClaim].(string)
	return contextkeys.Caller{
		ID:          idToken.Subject,
		Email:       email,
		GlobalAdmin: a.isAdmin(claims),
	}, nil
}

func (a *OIDCAuthenticator) isAdmin(claims map[string]interface{}) bool {
	if a.config.AdminClaim == "" {
		return false
	}
	switch v := claims[a.config.AdminClaim].(type) {
	case bool:
		return v
	case string:
		return a.config.AdminValue != "" && v == a.config.AdminValue
	case []interface{}:
		for _, item := range v {
			if s, ok := item.(string); ok && a.config.AdminValue != "" && s == a.config.AdminValue {
				return true
			}
		}
	}
	return false
}
