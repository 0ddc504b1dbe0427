package completion

import "encoding/json"

// Request is one prompt to complete. Zero MaxTokens and a nil Temperature
// fall back to the client configuration.
type Request struct {
	Prompt      string
	MaxTokens   int
	Temperature *float64
}

// Result is the completion text and the usage object reported by the
// service, relayed without interpretation.
type Result struct {
	Text  string
	Usage json.RawMessage
}

// completionRequest is the wire body sent to the service.
type completionRequest struct {
	Model       string  `json:"model,omitempty"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// completionResponse covers both accepted response shapes.
type completionResponse struct {
	Response *string            `json:"response"`
	Choices  []completionChoice `json:"choices"`
	Usage    json.RawMessage    `json:"usage"`
}

type completionChoice struct {
	Text string `json:"text"`
}
