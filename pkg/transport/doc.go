// Package transport defines the handler interfaces and middleware chain
// between the HTTP layer and the orchestrator.
//
// # Handler Interfaces
//
//   - ChatHandler handles POST /api/chat.
//   - ResourceReader lists and reads resources through the bridge.
//   - ExchangeReader queries the exchange journal.
//
// The orchestrator implements all three. The HTTP adapter in
// pkg/transport/http decodes requests, dispatches them, and writes JSON
// responses or errors.
//
// # Middleware
//
// The middleware chain wraps ChatHandler with cross-cutting concerns.
// Built-in middleware provides panic recovery, request ID assignment
// (X-Request-ID), and structured logging via log/slog.
package transport
