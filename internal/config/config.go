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
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
	Shop    ShopConfig    `mapstructure:"shop"`
	Oracle  OracleConfig  `mapstructure:"oracle"`
	Engine  EngineConfig  `mapstructure:"engine"`
	DB      DBConfig      `mapstructure:"db"`
	Storage StorageConfig `mapstructure:"storage"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
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

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// ShopConfig describes the storefront being browsed and fetch politeness.
type ShopConfig struct {
	BaseURL            string   `mapstructure:"base_url"`
	UserAgents         []string `mapstructure:"user_agents"`
	DelayMinMs         int      `mapstructure:"delay_min_ms"`
	DelayMaxMs         int      `mapstructure:"delay_max_ms"`
	RequestTimeoutSec  int      `mapstructure:"request_timeout_seconds"`
	SearchResultLimit  int      `mapstructure:"search_result_limit"`
	RecommendedLimit   int      `mapstructure:"recommended_limit"`
	RenderEnabled      bool     `mapstructure:"render_enabled"`
	RenderMinHTMLBytes int      `mapstructure:"render_min_html_bytes"`
	RenderKeywords     []string `mapstructure:"render_keywords"`
	RenderTimeoutSec   int      `mapstructure:"render_timeout_seconds"`
}

// OracleConfig configures the decision oracle.
type OracleConfig struct {
	// Provider selects the oracle implementation: "llm" or "first".
	Provider       string  `mapstructure:"provider"`
	Endpoint       string  `mapstructure:"endpoint"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	TimeoutSeconds int     `mapstructure:"timeout_seconds"`
	MaxAttempts    int     `mapstructure:"max_attempts"`
	Temperature    float64 `mapstructure:"temperature"`
}

// EngineConfig governs dispatcher and task loop behavior.
type EngineConfig struct {
	Workers    int `mapstructure:"workers"`
	QueueDepth int `mapstructure:"queue_depth"`
	MaxSteps   int `mapstructure:"max_steps"`
}

// DBConfig controls access to the relational database.
type DBConfig struct {
	// Enabled switches between Postgres and in-memory stores.
	Enabled bool   `mapstructure:"enabled"`
	DSN     string `mapstructure:"dsn"`
}

// StorageConfig sets the blob backend for cached page content.
type StorageConfig struct {
	// Backend is one of "memory", "local", "gcs".
	Backend     string `mapstructure:"backend"`
	BaseDir     string `mapstructure:"base_dir"`
	GCSBucket   string `mapstructure:"gcs_bucket"`
	Prefix      string `mapstructure:"prefix"`
	ContentType string `mapstructure:"content_type"`
}

// PubSubConfig holds metadata for completion event publishing.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SHOPAGENT")
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
	v.SetDefault("logging.development", true)
	v.SetDefault("shop.base_url", "https://www.amazon.com")
	v.SetDefault("shop.delay_min_ms", 10)
	v.SetDefault("shop.delay_max_ms", 80)
	v.SetDefault("shop.request_timeout_seconds", 15)
	v.SetDefault("shop.search_result_limit", 5)
	v.SetDefault("shop.recommended_limit", 5)
	v.SetDefault("shop.render_enabled", false)
	v.SetDefault("shop.render_min_html_bytes", 2000)
	v.SetDefault("shop.render_keywords", []string{"__NEXT_DATA__", "data-reactroot"})
	v.SetDefault("shop.render_timeout_seconds", 25)
	v.SetDefault("oracle.provider", "llm")
	v.SetDefault("oracle.model", "gpt-4o-mini")
	v.SetDefault("oracle.timeout_seconds", 60)
	v.SetDefault("oracle.max_attempts", 3)
	v.SetDefault("oracle.temperature", 0.7)
	v.SetDefault("engine.workers", 4)
	v.SetDefault("engine.queue_depth", 64)
	v.SetDefault("engine.max_steps", 10)
	v.SetDefault("db.enabled", false)
	v.SetDefault("storage.backend", "memory")
	v.SetDefault("storage.prefix", "pages")
	v.SetDefault("storage.content_type", "text/html; charset=utf-8")
	v.SetDefault("pubsub.enabled", false)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Shop.BaseURL == "" {
		return fmt.Errorf("shop.base_url is required")
	}
	if c.Shop.DelayMaxMs < c.Shop.DelayMinMs {
		return fmt.Errorf("shop.delay_max_ms must be >= shop.delay_min_ms")
	}
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be > 0")
	}
	if c.Engine.MaxSteps <= 0 {
		return fmt.Errorf("engine.max_steps must be > 0")
	}
	switch c.Oracle.Provider {
	case "llm":
		if c.Oracle.APIKey == "" {
			return fmt.Errorf("oracle.api_key must be set when oracle.provider is llm")
		}
		if c.Oracle.MaxAttempts <= 0 {
			return fmt.Errorf("oracle.max_attempts must be > 0")
		}
	case "first":
	default:
		return fmt.Errorf("oracle.provider must be one of llm, first")
	}
	switch c.Storage.Backend {
	case "memory":
	case "local":
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local backend")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs backend")
		}
	default:
		return fmt.Errorf("storage.backend must be one of memory, local, gcs")
	}
	if c.DB.Enabled && c.DB.DSN == "" {
		return fmt.Errorf("db.dsn must be set when db.enabled is true")
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub.enabled is true")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// RequestTimeout returns the fetch timeout as a duration.
func (c ShopConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSec) * time.Second
}

// RenderTimeout returns the headless navigation timeout as a duration.
func (c ShopConfig) RenderTimeout() time.Duration {
	return time.Duration(c.RenderTimeoutSec) * time.Second
}

// DelayMin returns the lower politeness delay bound.
func (c ShopConfig) DelayMin() time.Duration {
	return time.Duration(c.DelayMinMs) * time.Millisecond
}

// DelayMax returns the upper politeness delay bound.
func (c ShopConfig) DelayMax() time.Duration {
	return time.Duration(c.DelayMaxMs) * time.Millisecond
}

// OracleTimeout returns the oracle call timeout as a duration.
func (c OracleConfig) OracleTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}
