package strategy

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Builder constructs a configured strategy instance. Each call must return a
// fresh instance so concurrent runs never share tracker state.
type Builder func(cfg Config, logger *slog.Logger) (Strategy, error)

// Registry manages a named collection of strategy builders that can be looked
// up at runtime. It is safe for concurrent use.
type Registry struct {
	builders map[string]Builder
	mu       sync.RWMutex
}

// NewRegistry returns an empty, ready-to-use Registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a strategy builder to the registry under the given name.
// If a builder with the same name already exists it will be replaced.
func (r *Registry) Register(name string, b Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = b
}

// Build constructs the strategy named in cfg. It returns an error when the
// name is not registered.
func (r *Registry) Build(cfg Config, logger *slog.Logger) (Strategy, error) {
	r.mu.RLock()
	b, ok := r.builders[cfg.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("strategy %q: not registered", cfg.Name)
	}
	return b(cfg, logger)
}

// List returns the names of all registered strategies in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// defaultRegistry carries the built-in strategies. Callers can Register
// additional builders on it through Default.
var defaultRegistry = NewRegistry()

func init() {
	defaultRegistry.Register("mean_reversion", func(cfg Config, logger *slog.Logger) (Strategy, error) {
		return NewMeanReversion(cfg, NewPriceTracker(lookbackTicks(cfg)), logger), nil
	})
	defaultRegistry.Register("market_maker", func(cfg Config, logger *slog.Logger) (Strategy, error) {
		return NewMarketMaker(cfg, NewPriceTracker(lookbackTicks(cfg)), logger), nil
	})
}

// Default returns the registry holding the built-in strategies.
func Default() *Registry {
	return defaultRegistry
}

// Build constructs the strategy named in cfg from the default registry, with
// its own PriceTracker.
func Build(cfg Config, logger *slog.Logger) (Strategy, error) {
	return defaultRegistry.Build(cfg, logger)
}
