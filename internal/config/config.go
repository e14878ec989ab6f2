package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config represents the main application configuration structure
// containing all configuration sections
type Config struct {
	Gateway    GatewayConfig    `toml:"gateway"`    // Conversation gateway settings
	Pipeline   PipelineConfig   `toml:"pipeline"`   // Podcast pipeline service settings
	Automation AutomationConfig `toml:"automation"` // Workflow automation service settings
	Chat       ChatConfig       `toml:"chat"`       // Chat session settings
	Health     HealthConfig     `toml:"health"`     // Service health polling settings
	Logging    LoggingConfig    `toml:"logging"`    // Application logging settings
}

// GatewayConfig contains conversation gateway connection settings
type GatewayConfig struct {
	BaseURL string `toml:"base_url"` // Root URL of the conversation gateway (e.g., http://localhost:8000)
}

// PipelineConfig contains podcast pipeline service connection settings
type PipelineConfig struct {
	BaseURL string `toml:"base_url"` // Root URL of the podcast pipeline service (e.g., http://localhost:8001)
}

// AutomationConfig contains workflow automation service connection settings
type AutomationConfig struct {
	BaseURL string `toml:"base_url"` // Root URL of the workflow automation service (e.g., http://localhost:8002)
}

// ChatConfig contains chat session settings
type ChatConfig struct {
	SessionStartGraceMs int      `toml:"session_start_grace_ms"` // Delay between opening the socket and sending start_session (default: 500)
	DefaultAgents       []string `toml:"default_agents"`         // Agents pre-selected when the chat view opens (optional)
}

// HealthConfig contains service health polling settings
type HealthConfig struct {
	ProbeTimeoutMs int `toml:"probe_timeout_ms"` // Per-probe request timeout in milliseconds (default: 5000)
	PollIntervalMs int `toml:"poll_interval_ms"` // Interval between refresh cycles in milliseconds (default: 30000)
}

// LoggingConfig contains application logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`  // Log level: "debug", "info", "warn", or "error"
	Format string `toml:"format"` // Log format: "json" (structured) or "console" (human-readable)
	File   string `toml:"file"`   // Log file path; the TUI owns the terminal so logs go to a file (default: agentdeck.log)
}

// Default returns a configuration populated with default values
func Default() *Config {
	return &Config{
		Gateway:    GatewayConfig{BaseURL: "http://localhost:8000"},
		Pipeline:   PipelineConfig{BaseURL: "http://localhost:8001"},
		Automation: AutomationConfig{BaseURL: "http://localhost:8002"},
		Chat:       ChatConfig{SessionStartGraceMs: 500},
		Health:     HealthConfig{ProbeTimeoutMs: 5000, PollIntervalMs: 30000},
		Logging:    LoggingConfig{Level: "info", Format: "console", File: "agentdeck.log"},
	}
}

// Load loads the configuration from the given TOML file
func Load(path string) (*Config, error) {
	// Check if the file exists
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s", path)
	}

	config := Default()
	if _, err := toml.DecodeFile(path, config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// LoadWithFallback loads the configuration by checking multiple locations in order of preference.
// If no config file exists anywhere, the built-in defaults are used.
func LoadWithFallback(preferredPath string) (*Config, error) {
	searchPaths := []string{
		preferredPath,         // User-specified path (if provided)
		"configs/config.toml", // configs/ folder
		"config.toml",         // Root directory
	}

	for _, path := range searchPaths {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			config, err := Load(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
			}
			return config, nil
		}
	}

	// No config file found anywhere; the defaults are enough to run against
	// local services.
	return Default(), nil
}

// applyDefaults fills in zero values with defaults after decoding
func (c *Config) applyDefaults() {
	def := Default()
	if c.Gateway.BaseURL == "" {
		c.Gateway.BaseURL = def.Gateway.BaseURL
	}
	if c.Pipeline.BaseURL == "" {
		c.Pipeline.BaseURL = def.Pipeline.BaseURL
	}
	if c.Automation.BaseURL == "" {
		c.Automation.BaseURL = def.Automation.BaseURL
	}
	if c.Chat.SessionStartGraceMs <= 0 {
		c.Chat.SessionStartGraceMs = def.Chat.SessionStartGraceMs
	}
	if c.Health.ProbeTimeoutMs <= 0 {
		c.Health.ProbeTimeoutMs = def.Health.ProbeTimeoutMs
	}
	if c.Health.PollIntervalMs <= 0 {
		c.Health.PollIntervalMs = def.Health.PollIntervalMs
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"gateway.base_url":    c.Gateway.BaseURL,
		"pipeline.base_url":   c.Pipeline.BaseURL,
		"automation.base_url": c.Automation.BaseURL,
	} {
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("invalid %s: scheme must be http or https, got %q", name, u.Scheme)
		}
		if u.Host == "" {
			return fmt.Errorf("invalid %s: missing host", name)
		}
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("invalid logging.format: %s (must be json or console)", c.Logging.Format)
	}

	for _, agent := range c.Chat.DefaultAgents {
		if strings.TrimSpace(agent) == "" {
			return fmt.Errorf("chat.default_agents must not contain empty entries")
		}
	}

	return nil
}
