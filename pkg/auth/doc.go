// Package auth provides optional authentication for the orch HTTP API.
//
// Authentication uses a chain-of-responsibility pattern with three-outcome
// voting: each authenticator returns Yes (identity found), No (credentials
// invalid), or Abstain (can't handle). A configurable default decides
// when all authenticators abstain.
//
// Auth is implemented as HTTP middleware. The middleware stores the
// identity in the request context and the tenant for journal scoping.
package auth
