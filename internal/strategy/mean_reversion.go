package strategy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

const defaultZEntryThreshold = 2.0

// MeanReversion trades statistical extremes with a trend filter. In a
// trending regime (short EMA crossed over long EMA) it follows the momentum,
// buying dips in an uptrend and selling rallies in a downtrend. In a
// range-bound regime it quotes both sides of the book and doubles up when
// the mid price reaches a z-score extreme, expecting reversion to the mean.
type MeanReversion struct {
	cfg     Config
	tracker *PriceTracker
	logger  *slog.Logger
	zEntry  float64
}

// NewMeanReversion creates a MeanReversion strategy. The following keys are
// read from cfg.Params:
//
//   - "lookback_ticks" (int): window for the mean/z-score statistics.
//     Defaults to 30.
//   - "z_entry_threshold" (float64): z-score magnitude that triggers a
//     contrarian trade. Defaults to 2.0.
func NewMeanReversion(cfg Config, tracker *PriceTracker, logger *slog.Logger) *MeanReversion {
	return &MeanReversion{
		cfg:     cfg,
		tracker: tracker,
		logger:  logger.With(slog.String("strategy", "mean_reversion")),
		zEntry:  paramFloat(cfg, "z_entry_threshold", defaultZEntryThreshold),
	}
}

// Name returns the strategy identifier.
func (mr *MeanReversion) Name() string { return "mean_reversion" }

// Init performs one-time setup. For MeanReversion this is a no-op.
func (mr *MeanReversion) Init(_ context.Context) error { return nil }

// OnTick evaluates every product with a two-sided book and emits the tick's
// desired orders. Products are visited in sorted order so runs are
// reproducible.
func (mr *MeanReversion) OnTick(_ context.Context, state TickState) ([]domain.Order, error) {
	products := make([]string, 0, len(state.Books))
	for p := range state.Books {
		products = append(products, p)
	}
	sort.Strings(products)

	var orders []domain.Order
	for _, product := range products {
		snap := state.Books[product]
		bid, ask := snap.BestBid(), snap.BestAsk()
		if bid == 0 || ask == 0 {
			continue
		}
		mid := snap.Mid()

		mr.tracker.Track(product, mid)
		z := mr.tracker.ZScore(product, mid)
		trend := mr.tracker.Trend(product)
		position := state.Positions[product]
		size := mr.cfg.Size

		var added []domain.Order
		switch trend {
		case 1:
			// Uptrend: buy pullbacks, keep a passive bid below the market,
			// take profit on longs once the price is back above the mean.
			if z < -mr.zEntry {
				added = append(added, domain.Order{Product: product, Price: bid, Quantity: size})
			}
			if bid-1 > 0 {
				added = append(added, domain.Order{Product: product, Price: bid - 1, Quantity: size})
			}
			if position > 0 && z > 0 {
				sell := min64(size, position)
				added = append(added, domain.Order{Product: product, Price: ask, Quantity: -sell})
			}
		case -1:
			// Downtrend mirror: sell rallies, rest an offer above the
			// market, cover shorts once the price falls back.
			if z > mr.zEntry {
				added = append(added, domain.Order{Product: product, Price: ask, Quantity: -size})
			}
			added = append(added, domain.Order{Product: product, Price: ask + 1, Quantity: -size})
			if position < 0 && z < 0 {
				cover := min64(size, -position)
				added = append(added, domain.Order{Product: product, Price: bid, Quantity: cover})
			}
		default:
			// Range-bound: quote both sides and lean harder into extremes.
			added = append(added,
				domain.Order{Product: product, Price: bid, Quantity: size},
				domain.Order{Product: product, Price: ask, Quantity: -size},
			)
			if z > mr.zEntry {
				added = append(added, domain.Order{Product: product, Price: ask, Quantity: -2 * size})
			}
			if z < -mr.zEntry {
				added = append(added, domain.Order{Product: product, Price: bid, Quantity: 2 * size})
			}
		}

		if len(added) > 0 {
			mr.logger.Debug("orders emitted",
				slog.String("product", product),
				slog.Int64("tick", state.Tick),
				slog.Float64("mid", mid),
				slog.Float64("z", z),
				slog.Int("trend", trend),
				slog.Int("count", len(added)),
			)
		}
		orders = append(orders, added...)
	}
	return orders, nil
}

// Close releases resources. MeanReversion has nothing to release.
func (mr *MeanReversion) Close() error { return nil }

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
