// Package apikey authenticates bearer tokens against a static key list.
// Keys are stored as SHA-256 hashes and compared in constant time.
package apikey

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"

	"github.com/sandbox-llm/orch/pkg/auth"
)

// Entry is the configuration form of one API key.
type Entry struct {
	Key      string
	Subject  string
	TenantID string
}

type hashedKey struct {
	hash  [32]byte
	entry Entry
}

// Authenticator validates bearer tokens against a static key store.
type Authenticator struct {
	keys []hashedKey
}

// New creates an API key authenticator. Keys are hashed immediately;
// plaintext keys are not retained.
func New(entries []Entry) *Authenticator {
	a := &Authenticator{}
	for _, e := range entries {
		a.keys = append(a.keys, hashedKey{
			hash:  sha256.Sum256([]byte(e.Key)),
			entry: Entry{Subject: e.Subject, TenantID: e.TenantID},
		})
	}
	return a
}

// Authenticate returns Yes for a known key, No for an unknown bearer
// token and Abstain when no bearer token is present.
func (a *Authenticator) Authenticate(_ context.Context, r *http.Request) auth.AuthResult {
	token, ok := auth.BearerToken(r)
	if !ok {
		return auth.AuthResult{Decision: auth.Abstain}
	}
	if token == "" {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	tokenHash := sha256.Sum256([]byte(token))

	// Every key is compared so the time taken does not depend on which
	// entry matched.
	var match *hashedKey
	for i := range a.keys {
		if subtle.ConstantTimeCompare(tokenHash[:], a.keys[i].hash[:]) == 1 && match == nil {
			match = &a.keys[i]
		}
	}
	if match == nil {
		return auth.AuthResult{Decision: auth.No, Err: auth.ErrUnauthenticated}
	}

	return auth.AuthResult{Decision: auth.Yes, Identity: &auth.Identity{
		Subject: match.entry.Subject,
		Tenant:  match.entry.TenantID,
	}}
}
