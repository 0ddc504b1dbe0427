// Package bridge is the resource bridge: a thin client of an external MCP
// (Model Context Protocol) resource server.
//
// Every operation opens its own session, performs one request, and tears
// the session down again. With the stdio transport this means the server
// subprocess lives exactly as long as one List or Read call. Nothing is
// pooled or reused between operations.
//
// The package wraps the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk). Supported transports are
// "stdio" (a subprocess speaking MCP on stdin/stdout), "sse", and
// "streamable-http".
package bridge
