// ABOUTME: Configuration loading and parsing for chatrelay
// ABOUTME: Supports YAML files with env var expansion plus webhook env fallbacks

package config

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete chatrelay configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig holds server address configuration
type ServerConfig struct {
	HTTPAddr string `yaml:"http_addr"`
}

// WebhookConfig holds the n8n webhook target and credentials
type WebhookConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	Timeout time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TimeoutRaw string `yaml:"timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds optional API token configuration. When the secret is
// empty the /api endpoints are open, matching the original deployment.
type AuthConfig struct {
	APITokenSecret string `yaml:"api_token_secret"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default values applied before validation.
const (
	DefaultHTTPAddr     = "localhost:8000"
	DefaultDatabasePath = "chatrelay.db"
)

// Load reads a configuration file from the given path and returns a
// parsed Config. Environment variables in the format ${VAR_NAME} are
// expanded. A missing file is not an error: the webhook section can be
// supplied entirely through environment variables, which is how the
// original .env-driven deployment ran.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Fall through to env vars and defaults.
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg.applyEnvFallbacks()
	cfg.applyDefaults()

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// applyEnvFallbacks fills empty webhook fields from environment
// variables. Both the WEBHOOK_* names and the older N8N_* names are
// honored, with WEBHOOK_* winning when both are set.
func (c *Config) applyEnvFallbacks() {
	if c.Webhook.URL == "" {
		c.Webhook.URL = firstEnv("WEBHOOK_URL", "N8N_WEBHOOK_URL")
	}
	if c.Webhook.Username == "" {
		c.Webhook.Username = firstEnv("WEBHOOK_USERNAME", "N8N_USERNAME")
	}
	if c.Webhook.Password == "" {
		c.Webhook.Password = firstEnv("WEBHOOK_PASSWORD", "N8N_PASSWORD")
	}
}

func (c *Config) applyDefaults() {
	if c.Server.HTTPAddr == "" {
		c.Server.HTTPAddr = DefaultHTTPAddr
	}
	if c.Database.Path == "" {
		c.Database.Path = DefaultDatabasePath
	}
}

// firstEnv returns the first non-empty value among the named variables.
func firstEnv(names ...string) string {
	for _, name := range names {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables become empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Webhook.URL == "" {
		return fmt.Errorf("webhook.url is required (or set WEBHOOK_URL / N8N_WEBHOOK_URL)")
	}
	if c.Webhook.Username == "" {
		return fmt.Errorf("webhook.username is required (or set WEBHOOK_USERNAME / N8N_USERNAME)")
	}
	if c.Webhook.Password == "" {
		return fmt.Errorf("webhook.password is required (or set WEBHOOK_PASSWORD / N8N_PASSWORD)")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	if cfg.Webhook.TimeoutRaw != "" {
		timeout, err := time.ParseDuration(cfg.Webhook.TimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing webhook timeout %q: %w", cfg.Webhook.TimeoutRaw, err)
		}
		cfg.Webhook.Timeout = timeout
	}
	return nil
}
