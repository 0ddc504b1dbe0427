// Package config provides unified configuration for orch.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (ORCH_ prefix, plus PORT)
//  4. File reference resolution (_file suffix fields)
//  5. Derived defaults (bridge command, absolute root)
//  6. Validation
package config

import "time"

// Config holds all configuration for orch.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Completion    CompletionConfig    `yaml:"completion"`
	Bridge        BridgeConfig        `yaml:"bridge"`
	Prompt        PromptConfig        `yaml:"prompt"`
	Journal       JournalConfig       `yaml:"journal"`
	Auth          AuthConfig          `yaml:"auth"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 5000
	ReadTimeout     time.Duration `yaml:"read_timeout"`     // default: 30s
	WriteTimeout    time.Duration `yaml:"write_timeout"`    // default: 180s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 30s
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 1 MiB
	CORSOrigins     []string      `yaml:"cors_origins"`     // default: ["*"]
}

// CompletionConfig holds completion service settings.
type CompletionConfig struct {
	URL         string        `yaml:"url"`          // default: http://localhost:8001/v1/completions
	APIKey      string        `yaml:"api_key"`      // optional
	APIKeyFile  string        `yaml:"api_key_file"` // _file variant for api_key
	Model       string        `yaml:"model"`        // optional
	MaxTokens   int           `yaml:"max_tokens"`   // default: 150
	Temperature float64       `yaml:"temperature"`  // default: 0.2
	Timeout     time.Duration `yaml:"timeout"`      // default: 120s
}

// BridgeConfig holds resource bridge settings.
type BridgeConfig struct {
	Enabled   bool   `yaml:"enabled"`   // default: true
	Transport string `yaml:"transport"` // "stdio", "sse" or "streamable-http", default: "stdio"

	// Command and Args start the resource server (stdio only). When
	// Command is empty it defaults to the filesystem server over Root.
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`

	URL     string            `yaml:"url"`
	Headers map[string]string `yaml:"headers"`
	Auth    BridgeAuthConfig  `yaml:"auth"`

	Root            string        `yaml:"root"`              // default: "."
	Timeout         time.Duration `yaml:"timeout"`           // default: 30s
	MaxContentBytes int           `yaml:"max_content_bytes"` // default: 65536
}

// BridgeAuthConfig holds OAuth client credentials for HTTP transports.
type BridgeAuthConfig struct {
	Type             string   `yaml:"type"` // "" or "oauth_client_credentials"
	TokenURL         string   `yaml:"token_url"`
	ClientID         string   `yaml:"client_id"`
	ClientIDFile     string   `yaml:"client_id_file"`
	ClientSecret     string   `yaml:"client_secret"`
	ClientSecretFile string   `yaml:"client_secret_file"`
	Scopes           []string `yaml:"scopes"`
}

// PromptConfig holds prompt composition settings.
type PromptConfig struct {
	Preamble string `yaml:"preamble"` // default: the orchestrator's built-in preamble
}

// JournalConfig holds exchange journal settings.
type JournalConfig struct {
	Type     string         `yaml:"type"` // "none", "memory", "postgres" or "sqlite", default: "none"
	Postgres PostgresConfig `yaml:"postgres"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: true
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"` // default: "orch.db"
}

// AuthConfig holds authentication settings.
type AuthConfig struct {
	Type    string         `yaml:"type"`     // "none", "apikey" or "jwt", default: "none"
	APIKeys []APIKeyConfig `yaml:"api_keys"` // entries for type=apikey
	JWT     JWTConfig      `yaml:"jwt"`
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key      string `yaml:"key" json:"key"`
	KeyFile  string `yaml:"key_file" json:"key_file"` // _file variant for key
	Subject  string `yaml:"subject" json:"subject"`
	TenantID string `yaml:"tenant_id" json:"tenant_id"`
}

// JWTConfig holds JWT verification settings for type=jwt.
type JWTConfig struct {
	PublicKeyFile  string `yaml:"public_key_file"` // PEM-encoded RSA public key
	HMACSecret     string `yaml:"hmac_secret"`
	HMACSecretFile string `yaml:"hmac_secret_file"`
	Issuer         string `yaml:"issuer"`
	Audience       string `yaml:"audience"`
	UserClaim      string `yaml:"user_claim"`
	TenantClaim    string `yaml:"tenant_claim"`
	ScopesClaim    string `yaml:"scopes_claim"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // default: "INFO"
	Format string `yaml:"format"` // "text" or "json", default: "text"
	Debug  string `yaml:"debug"`  // comma-separated debug categories
}

// ObservabilityConfig holds monitoring settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            5000,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    180 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			MaxBodySize:     1 << 20,
			CORSOrigins:     []string{"*"},
		},
		Completion: CompletionConfig{
			URL:         "http://localhost:8001/v1/completions",
			MaxTokens:   150,
			Temperature: 0.2,
			Timeout:     120 * time.Second,
		},
		Bridge: BridgeConfig{
			Enabled:         true,
			Transport:       "stdio",
			Root:            ".",
			Timeout:         30 * time.Second,
			MaxContentBytes: 64 << 10,
		},
		Journal: JournalConfig{
			Type: "none",
			Postgres: PostgresConfig{
				MaxConns:       10,
				MigrateOnStart: true,
			},
			SQLite: SQLiteConfig{
				Path: "orch.db",
			},
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Logging: LoggingConfig{
			Level:  "INFO",
			Format: "text",
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
}

// DefaultBridgeCommand runs the reference filesystem resource server.
const DefaultBridgeCommand = "npx"

// DefaultBridgeArgs returns the arguments of DefaultBridgeCommand for root.
func DefaultBridgeArgs(root string) []string {
	return []string{"-y", "@modelcontextprotocol/server-filesystem", root}
}
