// Package config provides configuration management with CLI > env > file precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for flashchat.
type Config struct {
	APIKey      string  `yaml:"api-key"`
	BaseURL     string  `yaml:"base-url"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max-tokens"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top-p"`
	Thinking    bool    `yaml:"thinking"`
	Stream      bool    `yaml:"stream"`
	TimeoutSecs int     `yaml:"timeout"`
	MaxRetries  int     `yaml:"max-retries"`
	AppEnv      string  `yaml:"app-env"`
	LogLevel    string  `yaml:"log-level"`
}

// DefaultConfig returns the provider-recommended defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:     "https://integrate.api.nvidia.com/v1",
		Model:       "moonshotai/kimi-k2.5",
		MaxTokens:   65536,
		Temperature: 1.0,
		TopP:        0.95,
		Thinking:    true,
		Stream:      true,
		TimeoutSecs: 120,
		MaxRetries:  3,
		AppEnv:      "development",
		LogLevel:    "info",
	}
}

// Load builds a Config by merging CLI flags, environment variables, and
// config files. Precedence: CLI args > env vars > config files (cwd then $HOME).
func Load(args []string) (*Config, error) {
	cfg := DefaultConfig()

	// Load config files (lowest precedence first, then overwrite).
	if home, err := os.UserHomeDir(); err == nil {
		_ = cfg.loadYAML(filepath.Join(home, ".flashchat.yml"))
	}
	_ = cfg.loadYAML(".flashchat.yml")

	// Load .env files.
	_ = godotenv.Load()

	cfg.applyEnv()

	// Parse CLI flags (highest precedence).
	if err := cfg.parseFlags(args); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("NVIDIA_API_KEY"); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv("NVIDIA_BASE_URL"); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv("DEFAULT_MODEL"); v != "" {
		c.Model = v
	}
	if v := os.Getenv("DEFAULT_MAX_TOKENS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxTokens = n
		}
	}
	if v := os.Getenv("DEFAULT_TEMPERATURE"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.Temperature = f
		}
	}
	if v := os.Getenv("DEFAULT_TOP_P"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.TopP = f
		}
	}
	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.TimeoutSecs = n
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		c.AppEnv = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) parseFlags(args []string) error {
	fs := flag.NewFlagSet("flashchat", flag.ContinueOnError)
	fs.StringVar(&c.APIKey, "api-key", c.APIKey, "NVIDIA API key")
	fs.StringVar(&c.BaseURL, "base-url", c.BaseURL, "API base URL")
	fs.StringVar(&c.Model, "model", c.Model, "Model name to use")
	fs.IntVar(&c.MaxTokens, "max-tokens", c.MaxTokens, "Maximum tokens to generate")
	fs.Float64Var(&c.Temperature, "temperature", c.Temperature, "Sampling temperature")
	fs.Float64Var(&c.TopP, "top-p", c.TopP, "Nucleus sampling parameter")
	fs.BoolVar(&c.Thinking, "thinking", c.Thinking, "Enable reasoning mode")
	fs.BoolVar(&c.Stream, "stream", c.Stream, "Stream responses")
	fs.IntVar(&c.TimeoutSecs, "timeout", c.TimeoutSecs, "Request timeout in seconds")
	fs.IntVar(&c.MaxRetries, "max-retries", c.MaxRetries, "Maximum retry attempts")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level (debug, info, warn, error)")
	return fs.Parse(args)
}

func (c *Config) validate() error {
	if c.MaxTokens < 1 || c.MaxTokens > 131072 {
		return fmt.Errorf("max-tokens %d outside 1..131072", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature %g outside 0..2", c.Temperature)
	}
	if c.TopP < 0 || c.TopP > 1 {
		return fmt.Errorf("top-p %g outside 0..1", c.TopP)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max-retries must be at least 1")
	}
	return nil
}
