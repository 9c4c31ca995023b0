// Package config defines the top-level configuration for the simulator and
// provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by TICKSIM_* environment
// variables.
type Config struct {
	Sim      SimConfig        `toml:"sim"`
	Data     DataConfig       `toml:"data"`
	Products map[string]int64 `toml:"products"` // symbol -> position limit
	Strategy StrategyConfig   `toml:"strategy"`
	Postgres PostgresConfig   `toml:"postgres"`
	Redis    RedisConfig      `toml:"redis"`
	S3       S3Config         `toml:"s3"`
	Server   ServerConfig     `toml:"server"`
	Notify   NotifyConfig     `toml:"notify"`
	Mode     string           `toml:"mode"`
	LogLevel string           `toml:"log_level"`
}

// SimConfig holds simulation run parameters.
type SimConfig struct {
	StartCash float64 `toml:"start_cash"`
	// MaxTicks caps how many ticks are replayed; 0 replays the full file.
	MaxTicks int64 `toml:"max_ticks"`
	// TickDelay slows the loop down for live viewing; 0 runs flat out.
	TickDelay duration `toml:"tick_delay"`
	// EquityEvery controls how often equity points are recorded (in ticks).
	EquityEvery int64 `toml:"equity_every"`
}

// DataConfig points at the recorded market data to replay.
type DataConfig struct {
	PricesPath string `toml:"prices_path"`
	// BotsPath is optional; without it no synthetic flow is applied.
	BotsPath string `toml:"bots_path"`
}

// StrategyConfig holds strategy selection and parameters.
type StrategyConfig struct {
	Name   string         `toml:"name"`
	Size   int64          `toml:"size"`
	Params map[string]any `toml:"params"`
}

// PostgresConfig holds PostgreSQL connection parameters. Persistence is
// optional: with Enabled false a run keeps everything in memory.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters for the live book cache and
// the tick result bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// S3Config holds S3-compatible object storage parameters for run archives.
type S3Config struct {
	Enabled        bool   `toml:"enabled"`
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// ServerConfig holds HTTP/WebSocket viewer server parameters.
type ServerConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

// NotifyConfig holds optional alerting channels. Runs notify on completion
// and failure; Events narrows which event types are forwarded.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "50ms".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
func Defaults() Config {
	return Config{
		Sim: SimConfig{
			StartCash:   100000,
			EquityEvery: 1,
		},
		Strategy: StrategyConfig{
			Name: "mean_reversion",
			Size: 5,
		},
		Postgres: PostgresConfig{
			Port:         5432,
			SSLMode:      "disable",
			PoolMaxConns: 4,
			PoolMinConns: 1,
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Server: ServerConfig{
			Port: 8080,
		},
		Mode:     "backtest",
		LogLevel: "info",
	}
}

// Validate checks the configuration for internal consistency. It should be
// called after Load and before wiring dependencies.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Mode) {
	case "backtest", "serve", "archive":
	default:
		return fmt.Errorf("config: unsupported mode %q", c.Mode)
	}

	if c.Mode == "backtest" {
		if c.Data.PricesPath == "" {
			return fmt.Errorf("config: data.prices_path is required in backtest mode")
		}
		if len(c.Products) == 0 {
			return fmt.Errorf("config: at least one product with a position limit is required")
		}
		for symbol, limit := range c.Products {
			if limit <= 0 {
				return fmt.Errorf("config: product %q: position limit must be positive, got %d", symbol, limit)
			}
		}
		if c.Strategy.Name == "" {
			return fmt.Errorf("config: strategy.name is required")
		}
		if c.Strategy.Size <= 0 {
			return fmt.Errorf("config: strategy.size must be positive")
		}
	}

	if c.Mode == "archive" && !c.S3.Enabled {
		return fmt.Errorf("config: archive mode requires s3.enabled")
	}
	if c.Mode == "archive" && !c.Postgres.Enabled {
		return fmt.Errorf("config: archive mode requires postgres.enabled")
	}
	if c.Server.Enabled && !c.Redis.Enabled {
		return fmt.Errorf("config: the viewer server requires redis.enabled for the signal bus")
	}

	if c.Sim.MaxTicks < 0 {
		return fmt.Errorf("config: sim.max_ticks must not be negative")
	}
	if c.Sim.EquityEvery <= 0 {
		return fmt.Errorf("config: sim.equity_every must be positive")
	}

	return nil
}
