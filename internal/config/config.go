package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all nbclient configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// Backend server endpoints
	Server ServerConfig `yaml:"server"`

	// WebSocket transport behavior
	Transport TransportConfig `yaml:"transport"`

	// AI assistant configuration
	AI AIConfig `yaml:"ai"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig configures the backend REST and WebSocket endpoints.
type ServerConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	Timeout string `yaml:"timeout"`
}

// TransportConfig configures WebSocket reconnect behavior.
type TransportConfig struct {
	BaseDelay            string `yaml:"base_delay"`
	MaxReconnectAttempts int    `yaml:"max_reconnect_attempts"`
	PingInterval         string `yaml:"ping_interval"`
}

// AIConfig configures the AI assistant proxy.
type AIConfig struct {
	Provider string `yaml:"provider"` // claude, openai, gemini
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// LoggingConfig configures the category logger.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Level      string          `yaml:"level"` // debug, info, warn, error
	Categories map[string]bool `yaml:"categories"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "nbclient",
		Version: "1.0.0",

		Server: ServerConfig{
			BaseURL: "http://localhost:8000/api",
			WSURL:   "ws://localhost:8000/ws",
			Timeout: "30s",
		},

		Transport: TransportConfig{
			BaseDelay:            "1s",
			MaxReconnectAttempts: 5,
			PingInterval:         "30s",
		},

		AI: AIConfig{
			Provider: "claude",
			Model:    "claude-sonnet-4-20250514",
		},

		Logging: LoggingConfig{
			DebugMode: false,
			Level:     "info",
		},
	}
}

// DefaultPath returns the workspace-relative config file path.
func DefaultPath(workspace string) string {
	return filepath.Join(workspace, ".nbclient", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults, not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides lets environment variables take precedence over the
// file for deployment-specific values.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("NBCLIENT_API_URL"); url != "" {
		c.Server.BaseURL = url
	}
	if url := os.Getenv("NBCLIENT_WS_URL"); url != "" {
		c.Server.WSURL = url
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" && c.AI.Provider == "claude" {
		c.AI.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && c.AI.Provider == "openai" {
		c.AI.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" && c.AI.Provider == "gemini" {
		c.AI.APIKey = key
	}
	if os.Getenv("NBCLIENT_DEBUG") == "1" {
		c.Logging.DebugMode = true
		c.Logging.Level = "debug"
	}
}

// GetServerTimeout returns the REST request timeout.
func (c *Config) GetServerTimeout() time.Duration {
	d, err := time.ParseDuration(c.Server.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// GetBaseDelay returns the reconnect base delay.
func (c *Config) GetBaseDelay() time.Duration {
	d, err := time.ParseDuration(c.Transport.BaseDelay)
	if err != nil {
		return time.Second
	}
	return d
}

// GetPingInterval returns the keepalive ping interval.
func (c *Config) GetPingInterval() time.Duration {
	d, err := time.ParseDuration(c.Transport.PingInterval)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	if c.Server.BaseURL == "" {
		return fmt.Errorf("server.base_url is required")
	}
	if c.Server.WSURL == "" {
		return fmt.Errorf("server.ws_url is required")
	}
	if c.Transport.MaxReconnectAttempts < 0 {
		return fmt.Errorf("transport.max_reconnect_attempts must be >= 0")
	}
	switch c.AI.Provider {
	case "", "claude", "openai", "gemini":
	default:
		return fmt.Errorf("unknown ai.provider: %s", c.AI.Provider)
	}
	return nil
}
