package strategy

import (
	"context"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// TickState is everything a strategy may look at when deciding orders for
// one tick: the fresh book snapshots plus its own current positions and
// cash. Strategies must not mutate the maps.
type TickState struct {
	Tick      int64
	Books     map[string]domain.BookSnapshot
	Positions map[string]int64
	Cash      float64
}

// Strategy defines the contract for trading strategies. OnTick is called
// once per simulation tick and returns the desired orders for that tick;
// unfilled remainder rests until the next tick.
type Strategy interface {
	Name() string
	Init(ctx context.Context) error
	OnTick(ctx context.Context, state TickState) ([]domain.Order, error)
	Close() error
}

// Config holds strategy configuration.
type Config struct {
	Name   string
	Size   int64 // base order size in units
	Params map[string]any
}

// paramFloat reads a float64 parameter from cfg.Params, tolerating integer
// TOML values, and falls back to def when absent or mistyped.
func paramFloat(cfg Config, key string, def float64) float64 {
	switch v := cfg.Params[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	default:
		return def
	}
}

// paramInt reads an integer parameter from cfg.Params with a default.
func paramInt(cfg Config, key string, def int) int {
	switch v := cfg.Params[key].(type) {
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return def
	}
}

// lookbackTicks returns the configured statistics window in ticks.
func lookbackTicks(cfg Config) int {
	return paramInt(cfg, "lookback_ticks", defaultWindowTicks)
}
