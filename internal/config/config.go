// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Auth     AuthConfig     `mapstructure:"auth"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Scraper  ScraperConfig  `mapstructure:"scraper"`
	Headless HeadlessConfig `mapstructure:"headless"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Worker   WorkerConfig   `mapstructure:"worker"`
	Storage  StorageConfig  `mapstructure:"storage"`
	DB       DBConfig       `mapstructure:"db"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LLMConfig points the analysis steps at a chat-completions endpoint.
type LLMConfig struct {
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Temperature    float64 `mapstructure:"temperature"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxRetries     int     `mapstructure:"max_retries"`
}

// ScraperConfig governs page fetching.
type ScraperConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled         bool `mapstructure:"enabled"`
	MaxParallel     int  `mapstructure:"max_parallel"`
	NavTimeoutSec   int  `mapstructure:"nav_timeout_seconds"`
	PromotionThresh int  `mapstructure:"promotion_threshold"`
}

// PipelineConfig controls step execution.
type PipelineConfig struct {
	Concurrency int    `mapstructure:"concurrency"`
	OnStepError string `mapstructure:"on_step_error"`
	Placeholder string `mapstructure:"placeholder"`
}

// WorkerConfig sizes the job execution pool.
type WorkerConfig struct {
	Count      int `mapstructure:"count"`
	QueueDepth int `mapstructure:"queue_depth"`
}

// StorageConfig selects blob persistence for scrape dumps.
type StorageConfig struct {
	Backend string `mapstructure:"backend"`
	BaseDir string `mapstructure:"base_dir"`
}

// DBConfig controls access to the relational database. An empty DSN keeps
// reports in memory.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PAGELENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.timeout_seconds", 60)
	v.SetDefault("llm.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("llm.model", "meta-llama/llama-4-scout-17b-16e-instruct")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.timeout_seconds", 60)
	v.SetDefault("llm.max_retries", 2)
	v.SetDefault("scraper.user_agent", "")
	v.SetDefault("scraper.timeout_seconds", 15)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 25)
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("pipeline.concurrency", 1)
	v.SetDefault("pipeline.on_step_error", "abort")
	v.SetDefault("worker.count", 2)
	v.SetDefault("worker.queue_depth", 64)
	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.base_dir", ".")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("pipeline.concurrency must be > 0")
	}
	switch c.Pipeline.OnStepError {
	case "", "abort", "continue":
	default:
		return fmt.Errorf("pipeline.on_step_error must be abort or continue")
	}
	if c.Worker.Count <= 0 {
		return fmt.Errorf("worker.count must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Storage.Backend {
	case "local", "memory":
	default:
		return fmt.Errorf("storage.backend must be local or memory")
	}
	return nil
}

// LLMTimeout returns the LLM request timeout as a duration.
func (c Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLM.TimeoutSeconds) * time.Second
}

// ScrapeTimeout returns the page fetch timeout as a duration.
func (c Config) ScrapeTimeout() time.Duration {
	return time.Duration(c.Scraper.TimeoutSeconds) * time.Second
}

// ServerTimeout returns the per-request handler timeout.
func (c Config) ServerTimeout() time.Duration {
	return time.Duration(c.Server.TimeoutSeconds) * time.Second
}
