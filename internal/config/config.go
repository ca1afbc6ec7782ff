package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultAuthSecret is used when no secret is configured. It is not safe
// for production; Load reports when it is in effect so main can warn.
const DefaultAuthSecret = "todochat-dev-secret-change-me"

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Providers   map[string]ProviderConfig `json:"providers"`
	Auth        AuthConfig                `json:"auth"`
}

type BasicConfig struct {
	ServerAddress  string   `json:"server_address"`
	Provider       string   `json:"provider"`
	AllowedOrigins []string `json:"allowed_origins"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type ProviderConfig struct {
	BaseURL string `json:"base_url"`
	Model   string `json:"model"`
	APIKey  string `json:"api_key"`
}

type AuthConfig struct {
	Secret          string `json:"secret"`
	TokenTTLMinutes int    `json:"token_ttl_minutes"`
}

const envAuthSecret = "AUTH_SECRET"

// Provider API keys are looked up per provider so a deployment can keep
// secrets out of the config file entirely.
var providerKeyEnv = map[string]string{
	"openai": "OPENAI_API_KEY",
	"claude": "ANTHROPIC_API_KEY",
	"gemini": "GEMINI_API_KEY",
}

// Load reads configuration from the provided path (defaults to
// config.json). A missing file is not an error: the service falls back
// to defaults so it can run from environment variables alone.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path == "" {
		path = "config.json"
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	switch {
	case err == nil:
		defer file.Close()
		if err := json.NewDecoder(file).Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
		// run on defaults + environment
	default:
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		BasicConfig: BasicConfig{
			ServerAddress: ":8000",
			Provider:      "openai",
			AllowedOrigins: []string{
				"http://localhost:3000",
				"http://localhost:3001",
			},
		},
		Databases: map[string]DatabaseConfig{
			"sqlite3": {DSN: "todochat.db"},
		},
		Providers: map[string]ProviderConfig{
			"openai": {Model: "gpt-4-turbo-preview"},
			"claude": {Model: "claude-sonnet-4-20250514"},
			"gemini": {Model: "gemini-2.0-flash"},
		},
		Auth: AuthConfig{TokenTTLMinutes: 24 * 60},
	}
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envAuthSecret); v != "" {
		c.Auth.Secret = v
	}
	for name, envKey := range providerKeyEnv {
		v := os.Getenv(envKey)
		if v == "" {
			continue
		}
		if c.Providers == nil {
			c.Providers = make(map[string]ProviderConfig)
		}
		prov := c.Providers[name]
		if prov.APIKey == "" {
			prov.APIKey = v
		}
		c.Providers[name] = prov
	}
}

func (c *Config) fillDefaults() {
	if c.BasicConfig.ServerAddress == "" {
		c.BasicConfig.ServerAddress = ":8000"
	}
	if c.BasicConfig.Provider == "" {
		c.BasicConfig.Provider = "openai"
	}
	if c.Auth.Secret == "" {
		c.Auth.Secret = DefaultAuthSecret
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		c.Auth.TokenTTLMinutes = 24 * 60
	}
	if len(c.Databases) == 0 {
		c.Databases = map[string]DatabaseConfig{
			"sqlite3": {DSN: "todochat.db"},
		}
	}
}

// InsecureSecret reports whether the signing secret is still the
// built-in development default.
func (c *Config) InsecureSecret() bool {
	return c.Auth.Secret == DefaultAuthSecret
}

// ProviderCredential returns the configured API key for the active
// provider, or "" when the external completion service is unavailable.
func (c *Config) ProviderCredential() string {
	prov, ok := c.Providers[c.BasicConfig.Provider]
	if !ok {
		return ""
	}
	return prov.APIKey
}
