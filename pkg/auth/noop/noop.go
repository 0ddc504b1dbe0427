// Package noop backs the "none" auth type: every request is let through
// as auth.AnonymousSubject, so handlers and the journal always find an
// identity in the context.
package noop

import (
	"context"
	"net/http"

	"github.com/sandbox-llm/orch/pkg/auth"
)

type Authenticator struct{}

var _ auth.Authenticator = (*Authenticator)(nil)

// Authenticate ignores r, including any credentials it carries.
func (*Authenticator) Authenticate(context.Context, *http.Request) auth.AuthResult {
	return auth.Anonymous()
}
