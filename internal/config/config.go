// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper. It is
// read once at process start and treated as immutable afterwards.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Store     StoreConfig     `mapstructure:"store"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts"`
	Publisher PublisherConfig `mapstructure:"publisher"`
	Scrape    ScrapeConfig    `mapstructure:"scrape"`
	Layout    LayoutConfig    `mapstructure:"layout"`
	Synth     SynthConfig     `mapstructure:"synth"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// StoreConfig selects and configures the job store backend.
type StoreConfig struct {
	Provider string              `mapstructure:"provider"`
	Redis    RedisStoreConfig    `mapstructure:"redis"`
	Postgres PostgresStoreConfig `mapstructure:"postgres"`
}

// RedisStoreConfig configures the Redis-backed job store.
type RedisStoreConfig struct {
	Addr     string `mapstructure:"addr"`
	DB       int    `mapstructure:"db"`
	TTLHours int    `mapstructure:"ttl_hours"`
}

// PostgresStoreConfig configures the Postgres-backed job store.
type PostgresStoreConfig struct {
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// QueueConfig selects and sizes the task queue.
type QueueConfig struct {
	Provider string           `mapstructure:"provider"`
	Depth    int              `mapstructure:"depth"`
	Redis    RedisQueueConfig `mapstructure:"redis"`
}

// RedisQueueConfig configures the Redis list queue.
type RedisQueueConfig struct {
	Addr string `mapstructure:"addr"`
	DB   int    `mapstructure:"db"`
	Key  string `mapstructure:"key"`
}

// ArtifactsConfig selects where generated HTML documents are stored.
type ArtifactsConfig struct {
	Provider string `mapstructure:"provider"`
	Prefix   string `mapstructure:"prefix"`
	BaseDir  string `mapstructure:"base_dir"`
	Bucket   string `mapstructure:"bucket"`
}

// PublisherConfig configures terminal-state event publishing.
type PublisherConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ScrapeConfig governs the headless capture stage.
type ScrapeConfig struct {
	NavTimeoutSec  int     `mapstructure:"nav_timeout_seconds"`
	SettleMs       int     `mapstructure:"settle_ms"`
	ViewportWidth  int     `mapstructure:"viewport_width"`
	ViewportHeight int     `mapstructure:"viewport_height"`
	MaxNodes       int     `mapstructure:"max_nodes"`
	UserAgent      string  `mapstructure:"user_agent"`
	DomainQPS      float64 `mapstructure:"domain_qps"`
}

// LayoutConfig bounds the summarizer output.
type LayoutConfig struct {
	MaxBlocks int `mapstructure:"max_blocks"`
}

// SynthConfig configures the generative backend and its retry budget.
type SynthConfig struct {
	BaseURL          string `mapstructure:"base_url"`
	APIKey           string `mapstructure:"api_key"`
	Model            string `mapstructure:"model"`
	MaxTokens        int    `mapstructure:"max_tokens"`
	MaxAttempts      int    `mapstructure:"max_attempts"`
	BackoffInitialMs int    `mapstructure:"backoff_initial_ms"`
	BackoffMaxMs     int    `mapstructure:"backoff_max_ms"`
	TimeoutSeconds   int    `mapstructure:"timeout_seconds"`
	FetchCSS         bool   `mapstructure:"fetch_css"`
}

// WorkerConfig sizes the orchestration pool.
type WorkerConfig struct {
	Concurrency int `mapstructure:"concurrency"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITECLONER")
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
	v.SetDefault("store.provider", "memory")
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.ttl_hours", 24)
	v.SetDefault("store.postgres.table", "clone_jobs")
	v.SetDefault("queue.provider", "memory")
	v.SetDefault("queue.depth", 64)
	v.SetDefault("queue.redis.addr", "localhost:6379")
	v.SetDefault("queue.redis.key", "clone:tasks")
	v.SetDefault("artifacts.provider", "memory")
	v.SetDefault("artifacts.prefix", "clones")
	v.SetDefault("publisher.provider", "memory")
	v.SetDefault("scrape.nav_timeout_seconds", 45)
	v.SetDefault("scrape.settle_ms", 500)
	v.SetDefault("scrape.viewport_width", 1280)
	v.SetDefault("scrape.viewport_height", 800)
	v.SetDefault("scrape.max_nodes", 1500)
	v.SetDefault("scrape.user_agent", "site-cloner-bot/0.1")
	v.SetDefault("scrape.domain_qps", 1.0)
	v.SetDefault("layout.max_blocks", 40)
	v.SetDefault("synth.base_url", "https://api.openai.com/v1")
	v.SetDefault("synth.model", "gpt-4.1")
	v.SetDefault("synth.max_tokens", 20000)
	v.SetDefault("synth.max_attempts", 3)
	v.SetDefault("synth.backoff_initial_ms", 1000)
	v.SetDefault("synth.backoff_max_ms", 10000)
	v.SetDefault("synth.timeout_seconds", 120)
	v.SetDefault("synth.fetch_css", true)
	v.SetDefault("worker.concurrency", 4)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Worker.Concurrency <= 0 {
		return fmt.Errorf("worker.concurrency must be > 0")
	}
	if c.Scrape.NavTimeoutSec <= 0 {
		return fmt.Errorf("scrape.nav_timeout_seconds must be > 0")
	}
	if c.Scrape.ViewportWidth <= 0 || c.Scrape.ViewportHeight <= 0 {
		return fmt.Errorf("scrape viewport must be positive")
	}
	if c.Layout.MaxBlocks <= 0 {
		return fmt.Errorf("layout.max_blocks must be > 0")
	}
	if c.Synth.MaxAttempts <= 0 {
		return fmt.Errorf("synth.max_attempts must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Store.Provider {
	case "memory", "redis", "postgres":
	default:
		return fmt.Errorf("unknown store provider %q", c.Store.Provider)
	}
	switch c.Queue.Provider {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown queue provider %q", c.Queue.Provider)
	}
	switch c.Artifacts.Provider {
	case "memory", "local", "gcs":
	default:
		return fmt.Errorf("unknown artifacts provider %q", c.Artifacts.Provider)
	}
	switch c.Publisher.Provider {
	case "memory", "pubsub":
	default:
		return fmt.Errorf("unknown publisher provider %q", c.Publisher.Provider)
	}
	if c.Store.Provider == "postgres" && c.Store.Postgres.DSN == "" {
		return fmt.Errorf("store.postgres.dsn is required for the postgres provider")
	}
	if c.Artifacts.Provider == "local" && c.Artifacts.BaseDir == "" {
		return fmt.Errorf("artifacts.base_dir is required for the local provider")
	}
	if c.Artifacts.Provider == "gcs" && c.Artifacts.Bucket == "" {
		return fmt.Errorf("artifacts.bucket is required for the gcs provider")
	}
	if c.Publisher.Provider == "pubsub" && (c.Publisher.ProjectID == "" || c.Publisher.Topic == "") {
		return fmt.Errorf("publisher.project_id and publisher.topic are required for pubsub")
	}
	return nil
}

// NavTimeout converts the scrape timeout into a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Scrape.NavTimeoutSec) * time.Second
}

// SettleWait converts the post-load settle delay into a duration.
func (c Config) SettleWait() time.Duration {
	return time.Duration(c.Scrape.SettleMs) * time.Millisecond
}

// SynthTimeout converts the generation request timeout into a duration.
func (c Config) SynthTimeout() time.Duration {
	return time.Duration(c.Synth.TimeoutSeconds) * time.Second
}
