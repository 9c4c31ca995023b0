package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMergesDefaults(t *testing.T) {
	path := writeConfig(t, `
mode = "backtest"

[data]
prices_path = "data/prices.csv"

[products]
INK = 20
KELP = 50

[strategy]
name = "market_maker"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Sim.StartCash != 100000 {
		t.Fatalf("start cash default = %f, want 100000", cfg.Sim.StartCash)
	}
	if cfg.Products["INK"] != 20 || cfg.Products["KELP"] != 50 {
		t.Fatalf("products = %v", cfg.Products)
	}
	if cfg.Strategy.Name != "market_maker" {
		t.Fatalf("strategy = %q", cfg.Strategy.Name)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
mode = "backtest"

[data]
prices_path = "data/prices.csv"

[products]
INK = 20
`)
	t.Setenv("TICKSIM_STRATEGY_NAME", "market_maker")
	t.Setenv("TICKSIM_SIM_MAX_TICKS", "500")
	t.Setenv("TICKSIM_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Strategy.Name != "market_maker" {
		t.Fatalf("env override lost: strategy = %q", cfg.Strategy.Name)
	}
	if cfg.Sim.MaxTicks != 500 {
		t.Fatalf("env override lost: max_ticks = %d", cfg.Sim.MaxTicks)
	}
	if !cfg.Redis.Enabled {
		t.Fatal("env override lost: redis.enabled")
	}
}

func TestValidateRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad mode", func(c *Config) { c.Mode = "replay" }},
		{"no products", func(c *Config) { c.Products = nil }},
		{"zero limit", func(c *Config) { c.Products = map[string]int64{"INK": 0} }},
		{"no prices path", func(c *Config) { c.Data.PricesPath = "" }},
		{"server without redis", func(c *Config) { c.Server.Enabled = true }},
		{"archive without s3", func(c *Config) { c.Mode = "archive"; c.Postgres.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			cfg.Data.PricesPath = "data/prices.csv"
			cfg.Products = map[string]int64{"INK": 20}
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
