// Package orchestrator runs the chat pipeline: validate the request, read
// the named resource through the bridge, compose the prompt, call the
// completion service once, and journal the exchange.
//
// The bridge and the journal are optional. Without a bridge a named
// resource is reported as unavailable in the response context; without a
// journal nothing is recorded.
package orchestrator
