package config

import (
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies TICKSIM_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known TICKSIM_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject connection secrets without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Data ──
	setStr(&cfg.Data.PricesPath, "TICKSIM_DATA_PRICES_PATH")
	setStr(&cfg.Data.BotsPath, "TICKSIM_DATA_BOTS_PATH")

	// ── Sim ──
	setFloat64(&cfg.Sim.StartCash, "TICKSIM_SIM_START_CASH")
	setInt64(&cfg.Sim.MaxTicks, "TICKSIM_SIM_MAX_TICKS")
	setDuration(&cfg.Sim.TickDelay, "TICKSIM_SIM_TICK_DELAY")

	// ── Strategy ──
	setStr(&cfg.Strategy.Name, "TICKSIM_STRATEGY_NAME")
	setInt64(&cfg.Strategy.Size, "TICKSIM_STRATEGY_SIZE")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "TICKSIM_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "TICKSIM_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "TICKSIM_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "TICKSIM_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "TICKSIM_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "TICKSIM_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "TICKSIM_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "TICKSIM_POSTGRES_SSLMODE")
	setBool(&cfg.Postgres.RunMigrations, "TICKSIM_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "TICKSIM_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "TICKSIM_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "TICKSIM_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "TICKSIM_REDIS_DB")
	setBool(&cfg.Redis.TLSEnabled, "TICKSIM_REDIS_TLS_ENABLED")

	// ── S3 ──
	setBool(&cfg.S3.Enabled, "TICKSIM_S3_ENABLED")
	setStr(&cfg.S3.Endpoint, "TICKSIM_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "TICKSIM_S3_REGION")
	setStr(&cfg.S3.Bucket, "TICKSIM_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "TICKSIM_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "TICKSIM_S3_SECRET_KEY")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "TICKSIM_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "TICKSIM_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "TICKSIM_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "TICKSIM_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "TICKSIM_SERVER_PORT")

	// ── Top-level ──
	setStr(&cfg.Mode, "TICKSIM_MODE")
	setStr(&cfg.LogLevel, "TICKSIM_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}
