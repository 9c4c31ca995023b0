package strategy

import (
	"context"
	"log/slog"
	"sort"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

const defaultMinSpread = 2

// MarketMaker quotes both sides of the book every tick to capture the
// spread. Quotes improve the current best by one tick when the spread is
// wide enough, otherwise they join the best. Inventory is skewed off by
// shading quote sizes: the side that would grow the position shrinks as the
// position grows.
type MarketMaker struct {
	cfg       Config
	tracker   *PriceTracker
	logger    *slog.Logger
	minSpread int64
}

// NewMarketMaker creates a MarketMaker strategy. The following keys are read
// from cfg.Params:
//
//   - "min_spread" (int): minimum book spread, in ticks, before quotes step
//     inside the best bid/ask instead of joining them. Defaults to 2.
//   - "lookback_ticks" (int): window for the volatility guard. Defaults
//     to 30.
func NewMarketMaker(cfg Config, tracker *PriceTracker, logger *slog.Logger) *MarketMaker {
	return &MarketMaker{
		cfg:       cfg,
		tracker:   tracker,
		logger:    logger.With(slog.String("strategy", "market_maker")),
		minSpread: int64(paramInt(cfg, "min_spread", defaultMinSpread)),
	}
}

// Name returns the strategy identifier.
func (mm *MarketMaker) Name() string { return "market_maker" }

// Init performs one-time setup. For MarketMaker this is a no-op.
func (mm *MarketMaker) Init(_ context.Context) error { return nil }

// OnTick emits a two-sided quote per product with a two-sided book.
func (mm *MarketMaker) OnTick(_ context.Context, state TickState) ([]domain.Order, error) {
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
		mm.tracker.Track(product, snap.Mid())

		quoteBid, quoteAsk := bid, ask
		if ask-bid > mm.minSpread {
			quoteBid, quoteAsk = bid+1, ask-1
		}

		buySize, sellSize := mm.skewedSizes(state.Positions[product])
		if buySize > 0 {
			orders = append(orders, domain.Order{Product: product, Price: quoteBid, Quantity: buySize})
		}
		if sellSize > 0 {
			orders = append(orders, domain.Order{Product: product, Price: quoteAsk, Quantity: -sellSize})
		}

		mm.logger.Debug("quote",
			slog.String("product", product),
			slog.Int64("tick", state.Tick),
			slog.Int64("bid", quoteBid),
			slog.Int64("ask", quoteAsk),
			slog.Int64("buy_size", buySize),
			slog.Int64("sell_size", sellSize),
		)
	}
	return orders, nil
}

// Close releases resources. MarketMaker has nothing to release.
func (mm *MarketMaker) Close() error { return nil }

// skewedSizes shades quote sizes by inventory: a long position quotes a
// smaller bid, a short position a smaller offer. The shrinking side bottoms
// out at zero rather than flipping sign.
func (mm *MarketMaker) skewedSizes(position int64) (buy, sell int64) {
	buy, sell = mm.cfg.Size, mm.cfg.Size
	if position > 0 {
		buy = max64(0, buy-position)
	}
	if position < 0 {
		sell = max64(0, sell+position)
	}
	return buy, sell
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
