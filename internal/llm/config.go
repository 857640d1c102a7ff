package llm

import (
	"fmt"
	"strings"
	"time"
)

// Mode selects the backend target and wire format for a session.
type Mode string

const (
	// ModeAnthropic streams the event-typed wire format from the Anthropic API.
	ModeAnthropic Mode = "anthropic"

	// ModeOpenAI streams the choice-delta wire format from an OpenAI-compatible API.
	ModeOpenAI Mode = "openai"

	// ModeAgent streams the application event envelope from a server-side agent.
	ModeAgent Mode = "agent"
)

// ParseMode resolves a user-supplied mode name.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeAnthropic:
		return ModeAnthropic, nil
	case ModeOpenAI:
		return ModeOpenAI, nil
	case ModeAgent:
		return ModeAgent, nil
	}
	return "", fmt.Errorf("unknown mode %q (want anthropic, openai, or agent)", s)
}

// Config contains configuration for the streaming client.
type Config struct {
	// AnthropicAPIKey authenticates ModeAnthropic requests
	AnthropicAPIKey string

	// AnthropicBaseURL is the Anthropic API base URL
	// Default: https://api.anthropic.com/v1
	AnthropicBaseURL string

	// OpenAIAPIKey authenticates ModeOpenAI requests
	OpenAIAPIKey string

	// OpenAIBaseURL is the OpenAI-compatible API base URL
	// Default: https://api.openai.com/v1
	OpenAIBaseURL string

	// AgentBaseURL is the server-side agent endpoint for ModeAgent.
	// The agent holds its own credentials; no key is required client-side.
	AgentBaseURL string

	// DefaultModel is the model to use when a request does not name one
	DefaultModel string

	// HeaderTimeout bounds the wait for initial response headers.
	// It does not bound the stream itself. Default: 30 seconds
	HeaderTimeout time.Duration

	// MaxTokens caps the response length for backends that require it.
	// Default: 4096
	MaxTokens int
}

// Validate checks that required config fields are set.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return fmt.Errorf("DefaultModel is required")
	}
	return nil
}

// SetDefaults fills in default values for optional fields.
func (c *Config) SetDefaults() {
	if c.AnthropicBaseURL == "" {
		c.AnthropicBaseURL = "https://api.anthropic.com/v1"
	}
	if c.OpenAIBaseURL == "" {
		c.OpenAIBaseURL = "https://api.openai.com/v1"
	}
	if c.HeaderTimeout == 0 {
		c.HeaderTimeout = 30 * time.Second
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
}

// endpoint resolves the request URL and credential for a mode. A missing key
// short-circuits before any network call.
func (c *Config) endpoint(mode Mode) (url, key string, err error) {
	switch mode {
	case ModeAnthropic:
		if c.AnthropicAPIKey == "" {
			return "", "", NewCredentialsError(mode)
		}
		return c.AnthropicBaseURL + "/messages", c.AnthropicAPIKey, nil

	case ModeOpenAI:
		if c.OpenAIAPIKey == "" {
			return "", "", NewCredentialsError(mode)
		}
		return c.OpenAIBaseURL + "/chat/completions", c.OpenAIAPIKey, nil

	case ModeAgent:
		if c.AgentBaseURL == "" {
			return "", "", NewCredentialsError(mode)
		}
		return c.AgentBaseURL + "/chat", "", nil
	}
	return "", "", fmt.Errorf("unknown mode %q", mode)
}
