// Package api defines the wire types of the orch HTTP API.
//
// The package performs no I/O. It holds the chat request and response
// DTOs, the resource descriptions returned by the resource bridge, exchange
// ID generation, and the APIError taxonomy that the transport layer maps to
// HTTP status codes.
//
// Core types:
//   - [ChatRequest]: a user message, optionally naming a file or resource
//   - [ChatResponse]: the completion text, usage, and context metadata
//   - [ResourceInfo], [ResourceContent]: what the resource bridge lists and reads
//   - [APIError]: structured error with type, param, and message
package api
