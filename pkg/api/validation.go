package api

import "strings"

// Validate checks a ChatRequest and normalizes its message. It returns an
// *APIError describing the first validation failure, or nil if the request
// is valid.
func (r *ChatRequest) Validate() *APIError {
	r.Message = strings.TrimSpace(r.Message)
	if r.Message == "" {
		return NewInvalidRequestError("message", "Message is required")
	}

	if r.File != "" && r.Resource != "" {
		return NewInvalidRequestError("resource", "file and resource are mutually exclusive")
	}

	if r.MaxTokens != nil && *r.MaxTokens <= 0 {
		return NewInvalidRequestError("max_tokens", "max_tokens must be positive")
	}

	if r.Temperature != nil {
		if *r.Temperature < 0.0 || *r.Temperature > 2.0 {
			return NewInvalidRequestError("temperature", "temperature must be between 0.0 and 2.0")
		}
	}

	return nil
}
