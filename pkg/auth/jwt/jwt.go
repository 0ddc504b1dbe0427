// Package jwt provides a JWT authenticator that verifies bearer tokens
// with a static key: an RSA public key (RS256/384/512) or an HMAC secret
// (HS256/384/512).
//
// It supports optional issuer and audience checks and configurable claim
// extraction for subject, tenant and scopes.
package jwt

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/sandbox-llm/orch/pkg/auth"
)

// Config holds the JWT authenticator configuration.
type Config struct {
	// PublicKeyPEM is a PEM-encoded RSA public key. Mutually exclusive
	// with HMACSecret.
	PublicKeyPEM []byte

	// HMACSecret is a shared secret for HS-signed tokens.
	HMACSecret string

	// Issuer is the expected iss claim. If empty, issuer is not validated.
	Issuer string

	// Audience is the expected aud claim. If empty, audience is not validated.
	Audience string

	// UserClaim is the claim used as the identity subject. Default: "sub".
	UserClaim string

	// TenantClaim is the claim used as the identity tenant. Default: "tenant_id".
	TenantClaim string

	// ScopesClaim is the claim used for scopes. Default: "scope".
	// The value can be a space-separated string or a JSON array.
	ScopesClaim string
}

func (c *Config) applyDefaults() {
	if c.UserClaim == "" {
		c.UserClaim = "sub"
	}
	if c.TenantClaim == "" {
		c.TenantClaim = "tenant_id"
	}
	if c.ScopesClaim == "" {
		c.ScopesClaim = "scope"
	}
}

// Authenticator validates JWT bearer tokens.
type Authenticator struct {
	config  Config
	key     any
	methods []string
}

// New creates a JWT authenticator. Exactly one of PublicKeyPEM and
// HMACSecret must be set.
func New(cfg Config) (*Authenticator, error) {
	cfg.applyDefaults()

	hasRSA := len(cfg.PublicKeyPEM) > 0
	hasHMAC := cfg.HMACSecret != ""

	a := &Authenticator{config: cfg}
	switch {
	case hasRSA && hasHMAC:
		return nil, errors.New("jwt: public key and HMAC secret are mutually exclusive")
	case hasRSA:
		key, err := jwtlib.ParseRSAPublicKeyFromPEM(cfg.PublicKeyPEM)
		if err != nil {
			return nil, fmt.Errorf("jwt: parsing public key: %w", err)
		}
		a.key = key
		a.methods = []string{"RS256", "RS384", "RS512"}
	case hasHMAC:
		a.key = []byte(cfg.HMACSecret)
		a.methods = []string{"HS256", "HS384", "HS512"}
	default:
		return nil, errors.New("jwt: a public key or an HMAC secret is required")
	}
	return a, nil
}

// Authenticate validates the bearer token of r.
//
// Decision outcomes:
//   - Abstain: no Authorization header or not a Bearer scheme
//   - No: bearer token present but invalid (expired, wrong issuer, bad signature, etc.)
//   - Yes: valid JWT with populated Identity
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	tokenStr, ok := auth.BearerToken(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if tokenStr == "" {
		return auth.AuthResult{Decision: auth.No, Err: errors.New("empty bearer token")}
	}

	token, err := jwtlib.Parse(tokenStr, a.keyFunc, a.parserOptions()...)
	if err != nil {
		slog.Debug("JWT validation failed", "error", err)
		return auth.AuthResult{Decision: auth.No, Err: fmt.Errorf("invalid JWT: %w", err)}
	}

	claims, ok := token.Claims.(jwtlib.MapClaims)
	if !ok || !token.Valid {
		return auth.AuthResult{Decision: auth.No, Err: errors.New("invalid JWT claims")}
	}

	subject := claimString(claims, a.config.UserClaim)
	if subject == "" {
		return auth.AuthResult{
			Decision: auth.No,
			Err:      fmt.Errorf("JWT missing %q claim", a.config.UserClaim),
		}
	}

	return auth.AuthResult{Decision: auth.Yes, Identity: &auth.Identity{
		Subject: subject,
		Tenant:  claimString(claims, a.config.TenantClaim),
		Scopes:  extractScopes(claims, a.config.ScopesClaim),
	}}
}

func (a *Authenticator) keyFunc(token *jwtlib.Token) (any, error) {
	switch a.key.(type) {
	case *rsa.PublicKey:
		if _, ok := token.Method.(*jwtlib.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	case []byte:
		if _, ok := token.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
	}
	return a.key, nil
}

func (a *Authenticator) parserOptions() []jwtlib.ParserOption {
	opts := []jwtlib.ParserOption{jwtlib.WithValidMethods(a.methods)}
	if a.config.Issuer != "" {
		opts = append(opts, jwtlib.WithIssuer(a.config.Issuer))
	}
	if a.config.Audience != "" {
		opts = append(opts, jwtlib.WithAudience(a.config.Audience))
	}
	return opts
}

// claimString returns the string value of a claim, or "" when it is
// missing or not a string.
func claimString(claims jwtlib.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// extractScopes reads a space-separated string or a JSON array claim.
func extractScopes(claims jwtlib.MapClaims, key string) []string {
	switch v := claims[key].(type) {
	case string:
		if parts := strings.Fields(v); len(parts) > 0 {
			return parts
		}
	case []any:
		var scopes []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				scopes = append(scopes, s)
			}
		}
		return scopes
	}
	return nil
}
