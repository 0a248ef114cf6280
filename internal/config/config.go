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
	Server    ServerConfig    `mapstructure:"server"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Downloads DownloadConfig  `mapstructure:"downloads"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	AI        AIConfig        `mapstructure:"ai"`
	DB        DBConfig        `mapstructure:"db"`
	Broadcast BroadcastConfig `mapstructure:"broadcast"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Archive   ArchiveConfig   `mapstructure:"archive"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// FeedConfig governs the EDGAR Atom feed poller.
type FeedConfig struct {
	URL                 string `mapstructure:"url"`
	TickerMapURL        string `mapstructure:"ticker_map_url"`
	UserAgent           string `mapstructure:"user_agent"`
	PollIntervalSeconds int    `mapstructure:"poll_interval_seconds"`
	TimeoutSeconds      int    `mapstructure:"timeout_seconds"`
}

// DownloadConfig bounds EDGAR document downloads globally.
type DownloadConfig struct {
	MaxConcurrent  int `mapstructure:"max_concurrent"`
	SpacingMs      int `mapstructure:"spacing_ms"`
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// PipelineConfig bounds per-cycle filing processing.
type PipelineConfig struct {
	Workers      int `mapstructure:"workers"`
	TextMaxChars int `mapstructure:"text_max_chars"`
}

// AIConfig configures the generative classifier endpoint.
type AIConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	ChunkWords     int    `mapstructure:"chunk_words"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// BroadcastConfig sizes the in-process event hub.
type BroadcastConfig struct {
	SubscriberBuffer int `mapstructure:"subscriber_buffer"`
}

// PubSubConfig holds metadata for external publish-subscribe notifications.
type PubSubConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// ArchiveConfig selects where raw filing documents are archived.
type ArchiveConfig struct {
	Provider  string `mapstructure:"provider"`
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalDir  string `mapstructure:"local_dir"`
	Prefix    string `mapstructure:"prefix"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SECPULSE")
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
	v.SetDefault("feed.url",
		"https://www.sec.gov/cgi-bin/browse-edgar"+
			"?action=getcurrent&CIK=&type=&company=&dateb="+
			"&owner=include&start=0&count=40&output=atom")
	v.SetDefault("feed.ticker_map_url", "https://www.sec.gov/files/company_tickers.json")
	v.SetDefault("feed.user_agent", "secpulse/0.1 contact@example.com")
	v.SetDefault("feed.poll_interval_seconds", 5)
	v.SetDefault("feed.timeout_seconds", 30)
	v.SetDefault("downloads.max_concurrent", 8)
	v.SetDefault("downloads.spacing_ms", 100)
	v.SetDefault("downloads.timeout_seconds", 15)
	v.SetDefault("pipeline.workers", 3)
	v.SetDefault("pipeline.text_max_chars", 20000)
	v.SetDefault("ai.base_url", "http://localhost:11434")
	v.SetDefault("ai.model", "llama3.2:3b-instruct-q8_0")
	v.SetDefault("ai.timeout_seconds", 180)
	v.SetDefault("ai.chunk_words", 8000)
	v.SetDefault("db.provider", "memory")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("broadcast.subscriber_buffer", 64)
	v.SetDefault("pubsub.provider", "noop")
	v.SetDefault("archive.provider", "noop")
	v.SetDefault("archive.prefix", "filings")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	if c.Feed.PollIntervalSeconds <= 0 {
		return fmt.Errorf("feed.poll_interval_seconds must be > 0")
	}
	if c.Downloads.MaxConcurrent <= 0 {
		return fmt.Errorf("downloads.max_concurrent must be > 0")
	}
	if c.Pipeline.Workers <= 0 {
		return fmt.Errorf("pipeline.workers must be > 0")
	}
	if c.AI.ChunkWords <= 0 {
		return fmt.Errorf("ai.chunk_words must be > 0")
	}
	if c.DB.Provider == "postgres" && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required when db.provider is postgres")
	}
	if c.PubSub.Provider == "pubsub" && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name are required when pubsub.provider is pubsub")
	}
	if c.Archive.Provider == "gcs" && c.Archive.GCSBucket == "" {
		return fmt.Errorf("archive.gcs_bucket is required when archive.provider is gcs")
	}
	if c.Archive.Provider == "local" && c.Archive.LocalDir == "" {
		return fmt.Errorf("archive.local_dir is required when archive.provider is local")
	}
	return nil
}

// PollInterval converts the poll interval setting into a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Feed.PollIntervalSeconds) * time.Second
}

// FeedTimeout converts the feed timeout setting into a duration.
func (c Config) FeedTimeout() time.Duration {
	return time.Duration(c.Feed.TimeoutSeconds) * time.Second
}

// DownloadTimeout converts the download timeout setting into a duration.
func (c Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Downloads.TimeoutSeconds) * time.Second
}

// DownloadSpacing converts the inter-request delay setting into a duration.
func (c Config) DownloadSpacing() time.Duration {
	return time.Duration(c.Downloads.SpacingMs) * time.Millisecond
}

// AITimeout converts the generative request timeout into a duration.
func (c Config) AITimeout() time.Duration {
	return time.Duration(c.AI.TimeoutSeconds) * time.Second
}
