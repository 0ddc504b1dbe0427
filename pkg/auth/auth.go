package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

// AuthDecision is an authenticator's vote on a request.
type AuthDecision int

// Votes. Yes and No end the chain; Abstain passes the request on to the
// next authenticator.
const (
	Yes AuthDecision = iota
	No
	Abstain
)

// AnonymousSubject is the subject of requests accepted without credentials.
const AnonymousSubject = "anonymous"

// AuthResult is one authenticator's vote. Identity is set for Yes, Err
// for No.
type AuthResult struct {
	Decision AuthDecision
	Identity *Identity
	Err      error
}

// Identity is the caller a request was accepted for.
type Identity struct {
	// Subject names the caller. Never empty for an accepted request.
	Subject string

	// Tenant scopes the caller's journal entries. Empty means unscoped.
	Tenant string

	Scopes []string
}

// Authenticator examines request credentials and returns a three-outcome vote.
type Authenticator interface {
	Authenticate(ctx context.Context, r *http.Request) AuthResult
}

// ErrUnauthenticated is returned when no authenticator accepted the request.
var ErrUnauthenticated = errors.New("authentication required")

// AuthChain evaluates authenticators in order using three-outcome voting.
type AuthChain struct {
	// Authenticators are evaluated left to right.
	Authenticators []Authenticator

	// DefaultDecision is used when all authenticators abstain.
	// Use Yes for development or No for production.
	DefaultDecision AuthDecision
}

// Authenticate runs the chain. Stops on the first Yes or No.
// If all abstain, returns the default decision.
func (c *AuthChain) Authenticate(ctx context.Context, r *http.Request) AuthResult {
	for _, authn := range c.Authenticators {
		result := authn.Authenticate(ctx, r)
		if result.Decision != Abstain {
			return result
		}
	}

	if c.DefaultDecision == Yes {
		return Anonymous()
	}

	return AuthResult{
		Decision: No,
		Err:      ErrUnauthenticated,
	}
}

// Anonymous accepts a request without credentials. Each call returns a
// new Identity so callers may modify it.
func Anonymous() AuthResult {
	return AuthResult{Decision: Yes, Identity: &Identity{Subject: AnonymousSubject}}
}

// BearerToken returns the token of a "Bearer" Authorization header.
// ok is false when the header is absent or uses another scheme.
func BearerToken(r *http.Request) (token string, ok bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	return strings.TrimSpace(token), true
}
