package api

import "encoding/json"

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	// Message is the user message. Required.
	Message string `json:"message"`

	// File names a file served by the resource bridge. Relative paths are
	// resolved against the bridge root. Mutually exclusive with Resource.
	File string `json:"file,omitempty"`

	// Resource is a resource URI passed to the bridge verbatim.
	Resource string `json:"resource,omitempty"`

	// MaxTokens overrides the configured completion token limit.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// Temperature overrides the configured sampling temperature.
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChatResponse is the body returned by POST /api/chat.
type ChatResponse struct {
	ID       string          `json:"id"`
	Response string          `json:"response"`
	Usage    json.RawMessage `json:"usage,omitempty"`
	Context  *ContextInfo    `json:"context,omitempty"`
}

// ContextInfo describes the resource that enriched a prompt, or why it
// could not be used.
type ContextInfo struct {
	URI       string `json:"uri"`
	MIMEType  string `json:"mime_type,omitempty"`
	Binary    bool   `json:"binary,omitempty"`
	Size      int    `json:"size"`
	Truncated bool   `json:"truncated,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ResourceInfo describes one resource advertised by the resource server.
type ResourceInfo struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MIMEType    string `json:"mime_type,omitempty"`
	Size        int64  `json:"size,omitempty"`
}

// ResourceList is the body returned by GET /api/resources.
type ResourceList struct {
	Resources []ResourceInfo `json:"resources"`
}

// ResourceContent is the extracted content of one read resource. Exactly
// one of Text or Blob is meaningful, selected by Binary.
type ResourceContent struct {
	URI       string `json:"uri"`
	MIMEType  string `json:"mime_type"`
	Binary    bool   `json:"binary"`
	Text      string `json:"text,omitempty"`
	Blob      []byte `json:"blob,omitempty"`
	Truncated bool   `json:"truncated,omitempty"`
}

// Size returns the length in bytes of the extracted content.
func (c *ResourceContent) Size() int {
	if c.Binary {
		return len(c.Blob)
	}
	return len(c.Text)
}

// HealthResponse is the body returned by GET /health.
type HealthResponse struct {
	Message string `json:"message"`
}
