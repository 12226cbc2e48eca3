package main

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Server   ServerConfig   `toml:"server"`
	Store    StoreConfig    `toml:"store"`
	Auth     AuthConfig     `toml:"auth"`
	Google   ProviderConfig `toml:"google"`
	Facebook ProviderConfig `toml:"facebook"`
}

type ServerConfig struct {
	Addr    string `toml:"addr"`
	BaseURL string `toml:"base_url"`
}

type StoreConfig struct {
	// Backend selects the user store: "postgres" or "fs".
	Backend string `toml:"backend"`

	// DSN is the Postgres connection string. Required for backend = "postgres".
	DSN string `toml:"dsn"`

	// Dir is the data directory for the file-backed store. Required for backend = "fs".
	Dir string `toml:"dir"`
}

type AuthConfig struct {
	JWTSecret         string `toml:"jwt_secret"`
	SessionTimeoutSec int    `toml:"session_timeout_seconds"`
	MinPasswordLength int    `toml:"min_password_length"`
}

type ProviderConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// LoadConfig reads config from the given path, expanding ${VAR} references
// against the environment before decoding.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	var cfg Config
	if _, err := toml.Decode(expanded, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return &cfg, nil
}

// expandEnvVars replaces ${VAR} with environment variable values.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := strings.TrimSuffix(strings.TrimPrefix(match, "${"), "}")
		return os.Getenv(varName)
	})
}

func (c *Config) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost" + c.Server.Addr
	}
	if c.Store.Backend == "" {
		c.Store.Backend = "fs"
	}
	if c.Store.Dir == "" {
		c.Store.Dir = "./data"
	}
}

// Validate checks that required config fields are present and consistent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "postgres":
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres backend")
		}
	case "fs":
		if c.Store.Dir == "" {
			return fmt.Errorf("store.dir is required for the fs backend")
		}
	default:
		return fmt.Errorf("unknown store.backend %q (want postgres or fs)", c.Store.Backend)
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		return fmt.Errorf("google.client_id and google.client_secret must be set together")
	}
	if (c.Facebook.ClientID == "") != (c.Facebook.ClientSecret == "") {
		return fmt.Errorf("facebook.client_id and facebook.client_secret must be set together")
	}
	return nil
}
