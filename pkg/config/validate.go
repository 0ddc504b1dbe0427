package config

import (
	"errors"
	"fmt"
	"net/url"
)

// Validate checks the configuration for required fields and valid values.
// Returns an error with a descriptive field path on failure.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be within 1..65535, got %d", c.Server.Port))
	}
	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}

	if c.Completion.URL == "" {
		errs = append(errs, errors.New("completion.url is required"))
	} else if u, err := url.Parse(c.Completion.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("completion.url must be an http(s) URL, got %q", c.Completion.URL))
	}
	if c.Completion.MaxTokens <= 0 {
		errs = append(errs, fmt.Errorf("completion.max_tokens must be > 0, got %d", c.Completion.MaxTokens))
	}
	if c.Completion.Temperature < 0 || c.Completion.Temperature > 2 {
		errs = append(errs, fmt.Errorf("completion.temperature must be within [0, 2], got %g", c.Completion.Temperature))
	}

	if c.Bridge.Enabled {
		switch c.Bridge.Transport {
		case "stdio":
			if c.Bridge.Command == "" {
				errs = append(errs, errors.New("bridge.command is required for the stdio transport"))
			}
		case "sse", "streamable-http":
			if c.Bridge.URL == "" {
				errs = append(errs, fmt.Errorf("bridge.url is required for the %s transport", c.Bridge.Transport))
			}
		default:
			errs = append(errs, fmt.Errorf("bridge.transport must be \"stdio\", \"sse\", or \"streamable-http\", got %q", c.Bridge.Transport))
		}
		if c.Bridge.Auth.Type != "" && c.Bridge.Auth.Type != "oauth_client_credentials" {
			errs = append(errs, fmt.Errorf("bridge.auth.type must be empty or \"oauth_client_credentials\", got %q", c.Bridge.Auth.Type))
		}
	}

	switch c.Journal.Type {
	case "none", "memory":
	case "postgres":
		if c.Journal.Postgres.DSN == "" {
			errs = append(errs, errors.New("journal.postgres.dsn or journal.postgres.dsn_file is required when journal.type is \"postgres\""))
		}
	case "sqlite":
		if c.Journal.SQLite.Path == "" {
			errs = append(errs, errors.New("journal.sqlite.path is required when journal.type is \"sqlite\""))
		}
	default:
		errs = append(errs, fmt.Errorf("journal.type must be \"none\", \"memory\", \"postgres\", or \"sqlite\", got %q", c.Journal.Type))
	}

	switch c.Auth.Type {
	case "none":
	case "apikey":
		if len(c.Auth.APIKeys) == 0 {
			errs = append(errs, errors.New("auth.api_keys must not be empty when auth.type is \"apikey\""))
		}
		for i, k := range c.Auth.APIKeys {
			if k.Key == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].key is required", i))
			}
			if k.Subject == "" {
				errs = append(errs, fmt.Errorf("auth.api_keys[%d].subject is required", i))
			}
		}
	case "jwt":
		hasKey := c.Auth.JWT.PublicKeyFile != ""
		hasSecret := c.Auth.JWT.HMACSecret != ""
		if hasKey == hasSecret {
			errs = append(errs, errors.New("exactly one of auth.jwt.public_key_file and auth.jwt.hmac_secret is required when auth.type is \"jwt\""))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.type must be \"none\", \"apikey\", or \"jwt\", got %q", c.Auth.Type))
	}

	switch c.Logging.Format {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be \"text\" or \"json\", got %q", c.Logging.Format))
	}

	return errors.Join(errs...)
}
