package completion

import "time"

// DefaultURL is the completion endpoint used when none is configured.
const DefaultURL = "http://localhost:8001/v1/completions"

// Config holds configuration for the completion client.
type Config struct {
	// URL is the full completion endpoint URL.
	URL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Model is included in the request body when set. Servers that host a
	// single model usually ignore it.
	Model string

	// MaxTokens and Temperature apply when a request does not override them.
	MaxTokens   int
	Temperature float64

	// Timeout bounds one completion request. Defaults to 120s.
	Timeout time.Duration
}

// DefaultConfig returns a Config with the defaults of the reference
// completion server.
func DefaultConfig() Config {
	return Config{
		URL:         DefaultURL,
		MaxTokens:   150,
		Temperature: 0.2,
		Timeout:     120 * time.Second,
	}
}
