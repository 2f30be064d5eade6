// Package config loads settings from defaults, an optional file, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/grading"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/jobs"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/llm"
	"github.com/Ebbinghaus-Team/Ebbinghaus-BE-sub000/internal/scheduling"
)

// EnvPrefix prefixes every environment override, e.g. EBBINGHAUS_DATABASE_DSN.
const EnvPrefix = "EBBINGHAUS"

type Config struct {
	Database Database
	Timezone string
	LogMode  string
	LLM      llm.Config
	Grading  grading.Config
	// Eligibility names who may enroll an item: "owner" or "anyone".
	Eligibility string
	Snapshot    Snapshot
	Redis       Redis
	Tracing     bool
}

type Database struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string
}

type Snapshot struct {
	Schedule   string
	RunOnStart bool
}

// Redis enables the shared snapshot lock when Addr is set.
type Redis struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// New returns a viper instance with defaults and environment binding.
func New() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	llmDefaults := llm.DefaultConfig()
	gradeDefaults := grading.DefaultConfig()

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")
	v.SetDefault("timezone", "Local")
	v.SetDefault("log.mode", "quiet")

	v.SetDefault("llm.provider", "auto")
	v.SetDefault("llm.timeout", llmDefaults.Timeout)
	v.SetDefault("llm.retry.max_attempts", llmDefaults.Retry.MaxAttempts)
	v.SetDefault("llm.retry.initial_wait", llmDefaults.Retry.InitialWait)
	v.SetDefault("llm.retry.max_wait", llmDefaults.Retry.MaxWait)
	v.SetDefault("llm.retry.multiplier", llmDefaults.Retry.Multiplier)
	v.SetDefault("llm.anthropic.model", llmDefaults.Anthropic.Model)
	v.SetDefault("llm.openai.model", llmDefaults.OpenAI.Model)
	v.SetDefault("llm.gemini.model", llmDefaults.Gemini.Model)
	v.SetDefault("llm.openrouter.model", llmDefaults.OpenRouter.Model)
	for _, p := range []string{"anthropic", "openai", "gemini", "openrouter"} {
		v.SetDefault("llm."+p+".api_key", "")
		v.SetDefault("llm."+p+".base_url", "")
	}

	v.SetDefault("grading.short_text.trim_space", gradeDefaults.ShortText.TrimSpace)
	v.SetDefault("grading.short_text.ignore_case", gradeDefaults.ShortText.IgnoreCase)
	v.SetDefault("grading.short_text.collapse_whitespace", gradeDefaults.ShortText.CollapseWhitespace)
	v.SetDefault("grading.short_text.strip_diacritics", gradeDefaults.ShortText.StripDiacritics)
	v.SetDefault("grading.free_text.timeout", gradeDefaults.FreeText.Timeout)
	v.SetDefault("grading.free_text.max_tokens", gradeDefaults.FreeText.MaxTokens)
	v.SetDefault("grading.free_text.temperature", gradeDefaults.FreeText.Temperature)

	v.SetDefault("review.eligibility", "owner")

	v.SetDefault("snapshot.schedule", jobs.DefaultSchedule)
	v.SetDefault("snapshot.run_on_start", true)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.lock_ttl", jobs.DefaultLockTTL)

	v.SetDefault("tracing.enabled", false)
}

// Load reads file (if non-empty) into v and builds a validated Config.
// An "auto" LLM provider picks the first vendor key found in the
// environment and falls back to "none".
func Load(v *viper.Viper, file string) (*Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	c := &Config{
		Database: Database{
			Driver: strings.ToLower(v.GetString("database.driver")),
			DSN:    v.GetString("database.dsn"),
		},
		Timezone: v.GetString("timezone"),
		LogMode:  v.GetString("log.mode"),
		LLM: llm.Config{
			Provider: strings.ToLower(v.GetString("llm.provider")),
			Anthropic: llm.AnthropicConfig{
				APIKey:  v.GetString("llm.anthropic.api_key"),
				Model:   v.GetString("llm.anthropic.model"),
				BaseURL: v.GetString("llm.anthropic.base_url"),
			},
			OpenAI: llm.OpenAIConfig{
				APIKey:  v.GetString("llm.openai.api_key"),
				Model:   v.GetString("llm.openai.model"),
				BaseURL: v.GetString("llm.openai.base_url"),
			},
			Gemini: llm.GeminiConfig{
				APIKey: v.GetString("llm.gemini.api_key"),
				Model:  v.GetString("llm.gemini.model"),
			},
			OpenRouter: llm.OpenRouterConfig{
				APIKey:  v.GetString("llm.openrouter.api_key"),
				Model:   v.GetString("llm.openrouter.model"),
				BaseURL: v.GetString("llm.openrouter.base_url"),
			},
			Retry: llm.RetryConfig{
				MaxAttempts: v.GetInt("llm.retry.max_attempts"),
				InitialWait: v.GetDuration("llm.retry.initial_wait"),
				MaxWait:     v.GetDuration("llm.retry.max_wait"),
				Multiplier:  v.GetFloat64("llm.retry.multiplier"),
			},
			Timeout: v.GetDuration("llm.timeout"),
		},
		Grading: grading.Config{
			ShortText: grading.ShortTextPolicy{
				TrimSpace:          v.GetBool("grading.short_text.trim_space"),
				IgnoreCase:         v.GetBool("grading.short_text.ignore_case"),
				CollapseWhitespace: v.GetBool("grading.short_text.collapse_whitespace"),
				StripDiacritics:    v.GetBool("grading.short_text.strip_diacritics"),
			},
			FreeText: grading.FreeTextConfig{
				Timeout:     v.GetDuration("grading.free_text.timeout"),
				MaxTokens:   v.GetInt("grading.free_text.max_tokens"),
				Temperature: v.GetFloat64("grading.free_text.temperature"),
			},
		},
		Eligibility: strings.ToLower(v.GetString("review.eligibility")),
		Snapshot: Snapshot{
			Schedule:   v.GetString("snapshot.schedule"),
			RunOnStart: v.GetBool("snapshot.run_on_start"),
		},
		Redis: Redis{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lock_ttl"),
		},
		Tracing: v.GetBool("tracing.enabled"),
	}

	if c.LLM.Provider == "auto" || c.LLM.Provider == "" {
		c.LLM.Provider = ""
		if found, ok := llm.DiscoverConfig(c.LLM); ok {
			c.LLM = found
		} else {
			c.LLM.Provider = "none"
		}
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case "sqlite":
	case "postgres":
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown database.driver %q", c.Database.Driver))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if err := c.LLM.Validate(); err != nil {
		errs = append(errs, err)
	}
	if _, err := scheduling.EligibilityByName(c.Eligibility); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
