// Package config holds the settings value constructed once at startup
// and passed into each component. Core packages never read files or
// environment variables themselves; the CLI loads this and injects
// secrets.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings is the top-level configuration for the tagging core.
type Settings struct {
	Version string   `yaml:"version"`
	Region  string   `yaml:"region"`
	Regions []string `yaml:"regions,omitempty"`

	Tagging TaggingSettings `yaml:"tagging,omitempty"`
	Retry   RetrySettings   `yaml:"retry,omitempty"`
	LLM     LLMSettings     `yaml:"llm,omitempty"`
}

// TaggingSettings configure the bulk tagging engine.
type TaggingSettings struct {
	BatchSize      int      `yaml:"batch_size"`
	EnableRollback bool     `yaml:"enable_rollback"`
	RequiredTags   []string `yaml:"required_tags,omitempty"`
}

// RetrySettings configure the shared retry policy for outbound calls.
type RetrySettings struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Multiplier  float64       `yaml:"multiplier"`
}

// LLMSettings configure the provider orchestrator. API keys are not
// part of the file; the loader injects them.
type LLMSettings struct {
	Primary     string        `yaml:"primary"`
	Fallback    string        `yaml:"fallback,omitempty"`
	Model       string        `yaml:"model,omitempty"`
	Temperature float32       `yaml:"temperature"`
	MaxTokens   int           `yaml:"max_tokens"`
	CacheOn     bool          `yaml:"cache"`
	CacheTTL    time.Duration `yaml:"cache_ttl"`

	OpenAIKey    string `yaml:"-"`
	AnthropicKey string `yaml:"-"`
}

// Load reads settings from a YAML file and validates them.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is intentional user input
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns settings with working defaults for everything that
// has one.
func Default() *Settings {
	return &Settings{
		Version: "v1",
		Region:  "us-east-1",
		Tagging: TaggingSettings{
			BatchSize:      50,
			EnableRollback: true,
		},
		Retry: RetrySettings{
			MaxAttempts: 3,
			BaseDelay:   2 * time.Second,
			MaxDelay:    10 * time.Second,
			Multiplier:  2,
		},
		LLM: LLMSettings{
			Primary:     "openai",
			Fallback:    "anthropic",
			Temperature: 0.3,
			MaxTokens:   2048,
			CacheOn:     true,
			CacheTTL:    time.Hour,
		},
	}
}

// Validate ensures required fields are present and bounds are sane.
func (s *Settings) Validate() error {
	if s.Version == "" {
		return fmt.Errorf("version is required")
	}
	if s.Region == "" && len(s.Regions) == 0 {
		return fmt.Errorf("at least one region is required")
	}
	if s.Tagging.BatchSize < 1 {
		return fmt.Errorf("tagging.batch_size must be at least 1")
	}
	if s.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}
	if s.Retry.Multiplier < 1 {
		return fmt.Errorf("retry.multiplier must be at least 1")
	}
	if s.LLM.Primary == "" {
		return fmt.Errorf("llm.primary is required")
	}
	if s.LLM.Temperature < 0 || s.LLM.Temperature > 1 {
		return fmt.Errorf("llm.temperature must be between 0 and 1")
	}
	return nil
}

// AllRegions returns the configured region list, falling back to the
// single default region.
func (s *Settings) AllRegions() []string {
	if len(s.Regions) > 0 {
		return s.Regions
	}
	return []string{s.Region}
}
