// Package config assembles the application configuration from defaults, an
// optional YAML file and CW_* environment variables. Command-line flags are
// applied on top by cmd/whisperer.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/petasbytes/code-whisperer/internal/provider"
	"github.com/petasbytes/code-whisperer/session"
	"gopkg.in/yaml.v3"
)

const (
	DefaultTimeout  = 60 * time.Second
	DefaultRedisTTL = 24 * time.Hour
)

// Config holds everything the whisperer needs at startup.
type Config struct {
	Provider   provider.Config          `yaml:"provider"`
	Generation session.GenerationConfig `yaml:"generation"`
	// Threshold is the guardrail score below which an answer is retried.
	Threshold      float64       `yaml:"threshold"`
	Timeout        time.Duration `yaml:"timeout"`
	TranscriptPath string        `yaml:"transcript,omitempty"`
	RedisAddr      string        `yaml:"redis_addr,omitempty"`
	RedisTTL       time.Duration `yaml:"redis_ttl,omitempty"`
	ReadRoot       string        `yaml:"read_root,omitempty"`
}

// DefaultConfig returns the built-in defaults. An empty model name lets the
// provider pick its own default.
func DefaultConfig() Config {
	return Config{
		Provider:   provider.Config{Name: provider.NameAnthropic},
		Generation: session.DefaultGenerationConfig(),
		Threshold:  session.DefaultThreshold,
		Timeout:    DefaultTimeout,
		RedisTTL:   DefaultRedisTTL,
	}
}

// Validate checks ranges that the session would otherwise reject later.
func (c Config) Validate() error {
	if err := c.Generation.Validate(); err != nil {
		return err
	}
	if c.Threshold < 0 || c.Threshold > 1 {
		return fmt.Errorf("%w: threshold %v outside [0, 1]", session.ErrInvalidConfig, c.Threshold)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", session.ErrInvalidConfig)
	}
	return nil
}

// LoadFile decodes a YAML file over the defaults; keys absent from the file
// keep their default value.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return &cfg, nil
}

// GetEnv returns the value of name, or fallback when it is unset.
func GetEnv(name, fallback string) string {
	if value, ok := os.LookupEnv(name); ok {
		return value
	}
	return fallback
}

// FromEnv overrides cfg with any CW_* variables that are set. Malformed
// values are reported together, each naming its variable.
func FromEnv(cfg *Config) error {
	cfg.Provider.Name = GetEnv("CW_PROVIDER", cfg.Provider.Name)
	cfg.Provider.Model = GetEnv("CW_MODEL", cfg.Provider.Model)
	cfg.Provider.BaseURL = GetEnv("CW_BASE_URL", cfg.Provider.BaseURL)
	cfg.Provider.APIKey = GetEnv("CW_API_KEY", cfg.Provider.APIKey)
	cfg.TranscriptPath = GetEnv("CW_TRANSCRIPT", cfg.TranscriptPath)
	cfg.RedisAddr = GetEnv("CW_REDIS_ADDR", cfg.RedisAddr)
	cfg.ReadRoot = GetEnv("CW_READ_ROOT", cfg.ReadRoot)

	var errs []error
	floatVar := func(name string, dst *float64) {
		if v, ok := os.LookupEnv(name); ok {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = f
		}
	}
	intVar := func(name string, dst *int) {
		if v, ok := os.LookupEnv(name); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = n
		}
	}
	durationVar := func(name string, dst *time.Duration) {
		if v, ok := os.LookupEnv(name); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
				return
			}
			*dst = d
		}
	}

	floatVar("CW_TEMPERATURE", &cfg.Generation.Temperature)
	floatVar("CW_TOP_P", &cfg.Generation.TopP)
	intVar("CW_TOP_K", &cfg.Generation.TopK)
	intVar("CW_MAX_OUTPUT_TOKENS", &cfg.Generation.MaxOutputTokens)
	floatVar("CW_THRESHOLD", &cfg.Threshold)
	durationVar("CW_TIMEOUT", &cfg.Timeout)
	durationVar("CW_REDIS_TTL", &cfg.RedisTTL)

	return errors.Join(errs...)
}
