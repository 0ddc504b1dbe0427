// Package journal records processed chat exchanges: the message, the
// resource that enriched it, the composed prompt, the answer, and the
// outcome. The journal is optional; the orchestrator never fails a chat
// because a journal write failed.
//
// Backends live in subpackages: memory for development, postgres and
// sqlite for persistence. All of them scope reads by the tenant carried
// in the request context.
package journal
