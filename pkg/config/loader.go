package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandbox-llm/orch/pkg/debug"
)

// Load loads configuration from a layered set of sources.
//
// The loading order is:
//  1. Built-in defaults
//  2. YAML config file (explicit path, ORCH_CONFIG env, ./config.yaml, /etc/orch/config.yaml)
//  3. Environment variable overrides
//  4. File reference resolution (_file suffix)
//  5. Derived defaults
//  6. Validation
func Load(configPath string) (*Config, error) {
	cfg := Defaults()

	filePath := discoverConfigFile(configPath)
	if filePath != "" {
		if err := loadYAMLFile(filePath, &cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", filePath, err)
		}
		debug.Log("config", "loaded config file", "path", filePath)
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}

	if err := resolveFileReferences(&cfg); err != nil {
		return nil, fmt.Errorf("resolving file references: %w", err)
	}

	if err := applyDerivedDefaults(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return &cfg, nil
}

// discoverConfigFile finds the config file path using the discovery order:
// 1. Explicit configPath argument
// 2. ORCH_CONFIG environment variable
// 3. ./config.yaml in the current directory
// 4. /etc/orch/config.yaml
//
// Returns empty string if no config file is found.
func discoverConfigFile(configPath string) string {
	if configPath != "" {
		return configPath
	}

	if envPath := os.Getenv("ORCH_CONFIG"); envPath != "" {
		return envPath
	}

	for _, path := range []string{"config.yaml", "/etc/orch/config.yaml"} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// loadYAMLFile reads and parses a YAML file into the Config struct.
// Fields not present in the YAML retain their current (default) values.
// Unknown keys are rejected so that typos do not go unnoticed.
func loadYAMLFile(path string, cfg *Config) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// applyEnvOverrides maps environment variables to config fields.
func applyEnvOverrides(cfg *Config) error {
	// PORT is honored for compatibility; ORCH_PORT wins when both are set.
	for _, name := range []string{"PORT", "ORCH_PORT"} {
		if v := os.Getenv(name); v != "" {
			port, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s: %q is not a number", name, v)
			}
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("ORCH_COMPLETION_URL"); v != "" {
		cfg.Completion.URL = v
	}
	if v := os.Getenv("ORCH_COMPLETION_API_KEY"); v != "" {
		cfg.Completion.APIKey = v
	}
	if v := os.Getenv("ORCH_MODEL"); v != "" {
		cfg.Completion.Model = v
	}

	// ORCH_BRIDGE_COMMAND holds the command line, split on whitespace.
	if v := os.Getenv("ORCH_BRIDGE_COMMAND"); v != "" {
		fields := strings.Fields(v)
		if len(fields) == 0 {
			return errors.New("ORCH_BRIDGE_COMMAND: empty command")
		}
		cfg.Bridge.Command = fields[0]
		cfg.Bridge.Args = fields[1:]
	}
	if v := os.Getenv("ORCH_BRIDGE_ROOT"); v != "" {
		cfg.Bridge.Root = v
	}
	if v := os.Getenv("ORCH_BRIDGE_TRANSPORT"); v != "" {
		cfg.Bridge.Transport = v
	}
	if v := os.Getenv("ORCH_BRIDGE_URL"); v != "" {
		cfg.Bridge.URL = v
	}
	if v := os.Getenv("ORCH_BRIDGE_ENABLED"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("ORCH_BRIDGE_ENABLED: %q is not a boolean", v)
		}
		cfg.Bridge.Enabled = enabled
	}

	if v := os.Getenv("ORCH_JOURNAL"); v != "" {
		cfg.Journal.Type = v
	}
	if v := os.Getenv("ORCH_JOURNAL_DSN"); v != "" {
		cfg.Journal.Postgres.DSN = v
	}
	if v := os.Getenv("ORCH_JOURNAL_PATH"); v != "" {
		cfg.Journal.SQLite.Path = v
	}

	if v := os.Getenv("ORCH_AUTH_TYPE"); v != "" {
		cfg.Auth.Type = v
	}

	// ORCH_API_KEYS: JSON array of API key configs.
	if v := os.Getenv("ORCH_API_KEYS"); v != "" {
		keys, err := parseAPIKeysJSON(v)
		if err != nil {
			return err
		}
		cfg.Auth.APIKeys = keys
	}

	return nil
}

// parseAPIKeysJSON parses a JSON array of API key configurations.
func parseAPIKeysJSON(jsonStr string) ([]APIKeyConfig, error) {
	var keys []APIKeyConfig
	if err := json.Unmarshal([]byte(jsonStr), &keys); err != nil {
		return nil, fmt.Errorf("parsing ORCH_API_KEYS: %w", err)
	}
	return keys, nil
}

// secretRef pairs a _file field with the value field it fills.
type secretRef struct {
	name  string
	file  string
	value *string
}

// resolveFileReferences reads _file fields and populates the corresponding value fields.
// For each field ending in _file, if the value field is empty and the file field is set,
// the file is read, whitespace is trimmed, and the value field is populated.
func resolveFileReferences(cfg *Config) error {
	refs := []secretRef{
		{"completion.api_key_file", cfg.Completion.APIKeyFile, &cfg.Completion.APIKey},
		{"journal.postgres.dsn_file", cfg.Journal.Postgres.DSNFile, &cfg.Journal.Postgres.DSN},
		{"bridge.auth.client_id_file", cfg.Bridge.Auth.ClientIDFile, &cfg.Bridge.Auth.ClientID},
		{"bridge.auth.client_secret_file", cfg.Bridge.Auth.ClientSecretFile, &cfg.Bridge.Auth.ClientSecret},
		{"auth.jwt.hmac_secret_file", cfg.Auth.JWT.HMACSecretFile, &cfg.Auth.JWT.HMACSecret},
	}
	for i := range cfg.Auth.APIKeys {
		refs = append(refs, secretRef{fmt.Sprintf("auth.api_keys[%d].key_file", i), cfg.Auth.APIKeys[i].KeyFile, &cfg.Auth.APIKeys[i].Key})
	}

	for _, ref := range refs {
		if ref.file == "" || *ref.value != "" {
			continue
		}
		val, err := readSecretFile(ref.file)
		if err != nil {
			return fmt.Errorf("%s: %w", ref.name, err)
		}
		*ref.value = val
	}

	return nil
}

// readSecretFile reads a file and returns its content with surrounding whitespace trimmed.
func readSecretFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// applyDerivedDefaults fills values that depend on other settings: the
// bridge root becomes absolute and an unset stdio command defaults to the
// filesystem server over that root.
func applyDerivedDefaults(cfg *Config) error {
	if cfg.Bridge.Root != "" {
		root, err := filepath.Abs(cfg.Bridge.Root)
		if err != nil {
			return fmt.Errorf("bridge.root: %w", err)
		}
		cfg.Bridge.Root = root
	}

	if cfg.Bridge.Transport == "stdio" && cfg.Bridge.Command == "" {
		cfg.Bridge.Command = DefaultBridgeCommand
		cfg.Bridge.Args = DefaultBridgeArgs(cfg.Bridge.Root)
	}

	return nil
}
