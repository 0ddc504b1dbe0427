// Package completion is the client of the text-completion service. It
// sends one JSON POST per prompt and maps transport and HTTP failures to
// api.APIError values so that the HTTP layer can relay them with the
// right status code.
//
// Two response shapes are accepted: the {"response", "usage"} body of the
// reference completion server and the OpenAI-style {"choices": [{"text"}]}
// body served by vLLM and compatible servers.
package completion
