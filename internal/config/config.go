// Package config loads and validates crawler configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig    `mapstructure:"server"`
	Auth       AuthConfig      `mapstructure:"auth"`
	Crawl      CrawlConfig     `mapstructure:"crawl"`
	Fetch      FetchConfig     `mapstructure:"fetch"`
	Headless   HeadlessConfig  `mapstructure:"headless"`
	Validation ValidateConfig  `mapstructure:"validate"`
	Gazetteer  GazetteerConfig `mapstructure:"gazetteer"`
	DB         DBConfig        `mapstructure:"db"`
	Archive    ArchiveConfig   `mapstructure:"archive"`
	PubSub     PubSubConfig    `mapstructure:"pubsub"`
	Telemetry  TelemetryConfig `mapstructure:"telemetry"`
	Logging    LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls the control-surface HTTP server.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// CrawlConfig governs the crawl lifecycle controller.
type CrawlConfig struct {
	Domain             string `mapstructure:"domain"`
	Mode               string `mapstructure:"mode"`
	MaxInFlight        int    `mapstructure:"max_in_flight"`
	PerHostIntervalMs  int    `mapstructure:"per_host_interval_ms"`
	MaxCycles          int    `mapstructure:"max_cycles"`
	FrontierCapacity   int    `mapstructure:"frontier_capacity"`
	TopCandidates      int    `mapstructure:"top_candidates"`
	GapBatchPerCycle   int    `mapstructure:"gap_batch_per_cycle"`
	CompositePairSides int    `mapstructure:"composite_pair_sides"`
}

// FetchConfig configures the plain HTTP fetch path.
type FetchConfig struct {
	UserAgent      string `mapstructure:"user_agent"`
	RespectRobots  bool   `mapstructure:"respect_robots"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
}

// HeadlessConfig configures the headless rendering subsystem.
type HeadlessConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// ValidateConfig tunes the hub validator.
type ValidateConfig struct {
	MinArticleLinks int `mapstructure:"min_article_links"`
	RetryBackoffMs  int `mapstructure:"retry_backoff_ms"`
}

// GazetteerConfig points at the reference entity file. An empty path falls
// back to the built-in seed entities.
type GazetteerConfig struct {
	Path string `mapstructure:"path"`
}

// DBConfig controls access to Postgres; an empty DSN selects the in-memory
// store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ArchiveConfig selects where evidence snapshots go.
type ArchiveConfig struct {
	// Backend is one of "noop", "memory", "local", or "gcs".
	Backend   string `mapstructure:"backend"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// PubSubConfig holds metadata for telemetry event publishing.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// TelemetryConfig tunes the event hub.
type TelemetryConfig struct {
	BufferSize     int `mapstructure:"buffer_size"`
	MaxBatchEvents int `mapstructure:"max_batch_events"`
	MaxBatchWaitMs int `mapstructure:"max_batch_wait_ms"`
	RetainEvents   int `mapstructure:"retain_events"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("HUBCRAWLER")
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
	v.SetDefault("crawl.mode", "normal")
	v.SetDefault("crawl.max_in_flight", 4)
	v.SetDefault("crawl.per_host_interval_ms", 1000)
	v.SetDefault("crawl.frontier_capacity", 1000)
	v.SetDefault("crawl.top_candidates", 100)
	v.SetDefault("crawl.gap_batch_per_cycle", 50)
	v.SetDefault("crawl.composite_pair_sides", 5)
	v.SetDefault("fetch.user_agent", "newsatlas-hubbot/0.1")
	v.SetDefault("fetch.respect_robots", true)
	v.SetDefault("fetch.timeout_seconds", 15)
	v.SetDefault("fetch.max_retries", 3)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 1)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("validate.min_article_links", 8)
	v.SetDefault("validate.retry_backoff_ms", 2000)
	v.SetDefault("archive.backend", "noop")
	v.SetDefault("telemetry.buffer_size", 4096)
	v.SetDefault("telemetry.max_batch_events", 500)
	v.SetDefault("telemetry.max_batch_wait_ms", 500)
	v.SetDefault("telemetry.retain_events", 1000)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Crawl.MaxInFlight <= 0 {
		return fmt.Errorf("crawl.max_in_flight must be > 0")
	}
	if c.Fetch.TimeoutSeconds <= 0 {
		return fmt.Errorf("fetch.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Archive.Backend {
	case "noop", "memory":
	case "local":
		if c.Archive.BaseDir == "" {
			return fmt.Errorf("archive.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Archive.GCSBucket == "" {
			return fmt.Errorf("archive.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("unknown archive backend %q", c.Archive.Backend)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	return nil
}

// PerHostInterval converts the politeness knob into a duration.
func (c Config) PerHostInterval() time.Duration {
	return time.Duration(c.Crawl.PerHostIntervalMs) * time.Millisecond
}

// FetchTimeout converts the fetch timeout knob into a duration.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Fetch.TimeoutSeconds) * time.Second
}

// ValidatorBackoff converts the validator retry knob into a duration.
func (c Config) ValidatorBackoff() time.Duration {
	return time.Duration(c.Validation.RetryBackoffMs) * time.Millisecond
}

// BatchWait converts the telemetry batching knob into a duration.
func (c Config) BatchWait() time.Duration {
	return time.Duration(c.Telemetry.MaxBatchWaitMs) * time.Millisecond
}
