package auth

import "context"

// The middleware stores the accepted *Identity under identityKey. Code
// behind it reads the identity back instead of re-parsing credentials.
type identityKey struct{}

func SetIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext is nil for requests that bypassed authentication,
// such as /health, and for callers outside the HTTP server.
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// SubjectFromContext is a logging shorthand; "" means no identity.
func SubjectFromContext(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.Subject
	}
	return ""
}
