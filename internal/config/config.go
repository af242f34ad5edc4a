package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/glucopilot/glucopilot-agent/internal/logger"
)

// envPrefix namespaces every agent variable, e.g. GLUCOPILOT_API_BASE_URL.
const envPrefix = "GLUCOPILOT"

// Provider source selectors.
const (
	SourceBridge  = "bridge"
	SourceFixture = "fixture"
)

// Config is the full agent configuration, one nested struct per concern.
type Config struct {
	API      APIConfig
	Provider ProviderConfig
	Bridge   BridgeConfig
	DB       DBConfig
	Redis    RedisConfig
	Sync     SyncConfig
	Dexcom   DexcomConfig
	Logger   LoggerConfig
}

// APIConfig addresses the GluCoPilot backend.
type APIConfig struct {
	BaseURL   string        `envconfig:"API_BASE_URL" default:"http://localhost:8000"`
	Token     string        `envconfig:"API_TOKEN" default:""`
	TokenFile string        `envconfig:"API_TOKEN_FILE" default:""`
	Timeout   time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
}

// ProviderConfig selects where health samples come from: the phone-side
// exporter over HTTP, or a deterministic YAML fixture.
type ProviderConfig struct {
	Source      string        `envconfig:"PROVIDER_SOURCE" default:"bridge"`
	ExporterURL string        `envconfig:"PROVIDER_EXPORTER_URL" default:"http://localhost:9940"`
	FixturePath string        `envconfig:"PROVIDER_FIXTURE" default:""`
	Timeout     time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"15s"`
}

// BridgeConfig configures the local read-only status server.
type BridgeConfig struct {
	Host           string   `envconfig:"BRIDGE_HOST" default:"127.0.0.1"`
	Port           int      `envconfig:"BRIDGE_PORT" default:"8787"`
	AllowedOrigins []string `envconfig:"BRIDGE_ALLOWED_ORIGINS" default:"*"`
}

// DBConfig configures the optional Postgres history store.
type DBConfig struct {
	Enabled  bool   `envconfig:"DB_ENABLED" default:"false"`
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     string `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"postgres"`
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`
	DBName   string `envconfig:"DB_NAME" default:"glucopilot_agent"`
}

// RedisConfig configures the optional Redis status cache. An empty host
// keeps status in memory.
type RedisConfig struct {
	Host string `envconfig:"REDIS_HOST" default:""`
	Port string `envconfig:"REDIS_PORT" default:"6379"`
}

// SyncConfig tunes the collect/sync cycle.
type SyncConfig struct {
	Interval   time.Duration `envconfig:"SYNC_INTERVAL" default:"15m"`
	RangeHours int           `envconfig:"SYNC_RANGE_HOURS" default:"24"`
	Timeframe  time.Duration `envconfig:"INSIGHTS_TIMEFRAME" default:"24h"`
}

// DexcomConfig carries the optional share-account credentials for the
// stateless CGM endpoints.
type DexcomConfig struct {
	Username string `envconfig:"DEXCOM_USERNAME" default:""`
	Password string `envconfig:"DEXCOM_PASSWORD" default:""`
	OUS      bool   `envconfig:"DEXCOM_OUS" default:"false"`
}

// LoggerConfig holds the raw logging knobs before level parsing.
type LoggerConfig struct {
	Level      string `envconfig:"LOG_LEVEL" default:"info"`
	OutputPath string `envconfig:"LOG_OUTPUT" default:"stdout"`
	Format     string `envconfig:"LOG_FORMAT" default:"text"`
}

// ParseLogLevel maps a level name onto the logger's level type, defaulting
// to info for anything unrecognized.
func ParseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

// LoggerSettings converts the raw logging knobs to the logger package's
// config.
func (c *Config) LoggerSettings() logger.Config {
	return logger.Config{
		Level:      ParseLogLevel(c.Logger.Level),
		OutputPath: c.Logger.OutputPath,
		Format:     c.Logger.Format,
	}
}

// Load parses the environment into a Config. Variables are prefixed with
// GLUCOPILOT_, e.g. GLUCOPILOT_API_BASE_URL.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment: %w", err)
	}
	return &cfg, nil
}

// Validate checks the settings a running agent depends on.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("API base URL is required")
	}
	if u, err := url.Parse(c.API.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("API base URL %q is not a valid URL", c.API.BaseURL)
	}
	switch c.Provider.Source {
	case SourceBridge:
		if u, err := url.Parse(c.Provider.ExporterURL); err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("exporter URL %q is not a valid URL", c.Provider.ExporterURL)
		}
	case SourceFixture:
		if c.Provider.FixturePath == "" {
			return fmt.Errorf("provider source %q requires a fixture path", SourceFixture)
		}
	default:
		return fmt.Errorf("unsupported provider source %q (want %q or %q)", c.Provider.Source, SourceBridge, SourceFixture)
	}
	if c.Sync.Interval <= 0 {
		return fmt.Errorf("sync interval must be positive, got %s", c.Sync.Interval)
	}
	if c.Sync.RangeHours <= 0 {
		return fmt.Errorf("sync range hours must be positive, got %d", c.Sync.RangeHours)
	}
	if c.Bridge.Port <= 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge port %d is out of range", c.Bridge.Port)
	}
	return nil
}
