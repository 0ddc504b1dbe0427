package bridge

import (
	"errors"
	"fmt"
	"time"
)

// Transport names accepted in Config.Transport.
const (
	TransportStdio          = "stdio"
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultMaxContentBytes = 64 << 10
)

// Config describes how to reach the resource server.
type Config struct {
	// Transport is "stdio", "sse", or "streamable-http". Defaults to "stdio".
	Transport string

	// Command and Args start the server subprocess (stdio only).
	Command string
	Args    []string

	// Env is appended to the parent environment of the subprocess.
	Env []string

	// Dir is the working directory of the subprocess.
	Dir string

	// URL is the server endpoint (sse and streamable-http only).
	URL string

	// Headers are added to every HTTP request to the server.
	Headers map[string]string

	// Auth optionally obtains a bearer token before each operation.
	Auth AuthConfig

	// Root is the directory relative file paths are resolved against.
	Root string

	// Timeout bounds one whole operation, from connect to teardown.
	Timeout time.Duration

	// MaxContentBytes caps the text extracted from a resource.
	MaxContentBytes int
}

// AuthConfig configures OAuth 2.0 client credentials for HTTP transports.
type AuthConfig struct {
	// Type is "" (none) or "oauth_client_credentials".
	Type         string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

func (c *Config) applyDefaults() {
	if c.Transport == "" {
		c.Transport = TransportStdio
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxContentBytes <= 0 {
		c.MaxContentBytes = defaultMaxContentBytes
	}
}

func (c *Config) validate() error {
	var errs []error

	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			errs = append(errs, errors.New("command is required for the stdio transport"))
		}
	case TransportSSE, TransportStreamableHTTP:
		if c.URL == "" {
			errs = append(errs, fmt.Errorf("url is required for the %s transport", c.Transport))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported transport type %q", c.Transport))
	}

	switch c.Auth.Type {
	case "":
	case "oauth_client_credentials":
		if c.Auth.TokenURL == "" {
			errs = append(errs, errors.New("auth.token_url is required for oauth_client_credentials"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported auth type %q", c.Auth.Type))
	}

	return errors.Join(errs...)
}
