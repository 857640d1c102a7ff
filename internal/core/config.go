package core

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Ethan2298/Objectiv/internal/llm"
)

// Config holds the application configuration.
type Config struct {
	LogLevel        string        `yaml:"log_level"`         // debug, info, warn, error
	AnthropicAPIKey string        `yaml:"anthropic_api_key"` // Key for the event-typed backend
	OpenAIAPIKey    string        `yaml:"openai_api_key"`    // Key for the choice-delta backend
	AgentBaseURL    string        `yaml:"agent_base_url"`    // Server-side agent endpoint
	DefaultMode     string        `yaml:"default_mode"`      // Backend for new sessions
	DefaultModel    string        `yaml:"default_model"`     // Model when a session names none
	RequestTimeout  time.Duration `yaml:"request_timeout"`   // Wait for initial response headers
}

// LoadConfig loads configuration from an optional YAML file, with environment
// variables taking precedence. An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		LogLevel:     "info",
		DefaultMode:  string(llm.ModeAnthropic),
		DefaultModel: "claude-sonnet-4-5",
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	// DEBUG flag overrides log level
	if os.Getenv("DEBUG") == "1" {
		cfg.LogLevel = "debug"
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AnthropicAPIKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OBJECTIV_AGENT_URL"); v != "" {
		cfg.AgentBaseURL = v
	}
	if v := os.Getenv("OBJECTIV_MODE"); v != "" {
		cfg.DefaultMode = v
	}
	if v := os.Getenv("OBJECTIV_MODEL"); v != "" {
		cfg.DefaultModel = v
	}

	// Keys are not required here; a missing key is reported when that
	// backend is first used, so the UI can show a setup hint.
	if _, err := llm.ParseMode(cfg.DefaultMode); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LLMConfig maps the application config onto the streaming client config.
func (c *Config) LLMConfig() *llm.Config {
	return &llm.Config{
		AnthropicAPIKey: c.AnthropicAPIKey,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		AgentBaseURL:    c.AgentBaseURL,
		DefaultModel:    c.DefaultModel,
		HeaderTimeout:   c.RequestTimeout,
	}
}

// Mode returns the configured default backend mode.
func (c *Config) Mode() llm.Mode {
	mode, err := llm.ParseMode(c.DefaultMode)
	if err != nil {
		return llm.ModeAnthropic
	}
	return mode
}
