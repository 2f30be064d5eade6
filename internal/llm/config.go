package llm

import (
	"fmt"
	"os"
	"time"
)

// Config selects and configures the model provider.
type Config struct {
	// Provider is one of "anthropic", "openai", "gemini", "openrouter",
	// "mock" or "none". "none" disables AI grading.
	Provider string

	Anthropic  AnthropicConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	OpenRouter OpenRouterConfig
	Retry      RetryConfig

	// Timeout bounds a single Generate call including retries.
	Timeout time.Duration
}

type AnthropicConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

type OpenRouterConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

func DefaultConfig() Config {
	return Config{
		Provider:   "none",
		Anthropic:  AnthropicConfig{Model: "haiku"},
		OpenAI:     OpenAIConfig{Model: "mini"},
		Gemini:     GeminiConfig{Model: "flash"},
		OpenRouter: OpenRouterConfig{Model: "google/gemini-2.5-flash"},
		Retry: RetryConfig{
			MaxAttempts: 2,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     4 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 20 * time.Second,
	}
}

// DiscoverConfig looks for a vendor API key in the conventional
// environment variables and picks the first provider that has one.
func DiscoverConfig(base Config) (Config, bool) {
	probes := []struct {
		env   string
		apply func(*Config, string)
	}{
		{"ANTHROPIC_API_KEY", func(c *Config, k string) { c.Provider, c.Anthropic.APIKey = "anthropic", k }},
		{"OPENAI_API_KEY", func(c *Config, k string) { c.Provider, c.OpenAI.APIKey = "openai", k }},
		{"GEMINI_API_KEY", func(c *Config, k string) { c.Provider, c.Gemini.APIKey = "gemini", k }},
		{"OPENROUTER_API_KEY", func(c *Config, k string) { c.Provider, c.OpenRouter.APIKey = "openrouter", k }},
	}
	for _, p := range probes {
		if k := os.Getenv(p.env); k != "" {
			p.apply(&base, k)
			return base, true
		}
	}
	return base, false
}

// Enabled reports whether a real or mock provider is configured.
func (c Config) Enabled() bool {
	return c.Provider != "" && c.Provider != "none"
}

func (c Config) Validate() error {
	missing := func(key string) error {
		return fmt.Errorf("llm.%s.api_key is required for provider %q", key, c.Provider)
	}
	switch c.Provider {
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return missing("anthropic")
		}
	case "openai":
		if c.OpenAI.APIKey == "" {
			return missing("openai")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return missing("gemini")
		}
	case "openrouter":
		if c.OpenRouter.APIKey == "" {
			return missing("openrouter")
		}
	case "mock", "none", "":
	default:
		return fmt.Errorf("unknown llm provider %q", c.Provider)
	}
	return nil
}
