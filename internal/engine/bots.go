package engine

import (
	"sort"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// ApplyBotFlow merges one tick's synthetic bot orders into the simulation in
// a fixed three-stage priority per bot order:
//
//  1. consume crossable market-book liquidity (the market side carries no
//     position limit -- the ledger belongs to the strategy, not the market),
//  2. consume the strategy's crossable resting quotes, clamped to the
//     strategy's remaining capacity, with the ledger credited or debited at
//     the resting price,
//  3. rest any remainder into the market book at the bot's price, merging
//     with existing quantity there.
//
// Products are processed in snapshot insertion order; within a product, bot
// buys run before bot sells, most aggressive price first. Afterwards every
// touched book is compacted so later price-priority scans never observe a
// crossed-out empty level. The returned fills are the stage-2 executions
// against the strategy.
func ApplyBotFlow(orders []domain.BotOrders, market, resting *Depth, ledger *Ledger) []Fill {
	var fills []Fill

	for _, bo := range orders {
		if bo.Product == "" {
			continue
		}
		for _, price := range sortedPrices(bo.Buys, true) {
			fills = append(fills, applyBotOrder(bo.Product, domain.SideBuy, price, bo.Buys[price], market, resting, ledger)...)
		}
		for _, price := range sortedPrices(bo.Sells, false) {
			fills = append(fills, applyBotOrder(bo.Product, domain.SideSell, price, bo.Sells[price], market, resting, ledger)...)
		}
	}

	market.Compact()
	resting.Compact()
	return fills
}

// applyBotOrder runs the three stages for a single bot order. botSide is the
// bot's direction; the strategy trades the opposite way in stage 2.
func applyBotOrder(product string, botSide domain.Side, botPrice, botQty int64, market, resting *Depth, ledger *Ledger) []Fill {
	if botPrice <= 0 || botQty <= 0 {
		return nil
	}

	takeSide := botSide.Opposite() // side of the books the bot consumes

	// Stage 1: market liquidity, no capacity bound.
	marketBook := market.Book(product, takeSide)
	for _, price := range marketBook.Prices() {
		if botQty == 0 {
			break
		}
		if !crosses(botSide, botPrice, price) {
			break
		}
		available := marketBook.QuantityAt(price)
		if available <= 0 {
			continue
		}
		fill := available
		if botQty < fill {
			fill = botQty
		}
		marketBook.Add(price, -fill)
		botQty -= fill
	}

	// Stage 2: the strategy's resting quotes, capacity-clamped. The
	// strategy is the counter-party, so its ledger moves opposite to the
	// bot at the resting order's own price.
	var fills []Fill
	restingBook := resting.Book(product, takeSide)
	for _, price := range restingBook.Prices() {
		if botQty == 0 {
			break
		}
		if !crosses(botSide, botPrice, price) {
			break
		}
		available := restingBook.QuantityAt(price)
		if available <= 0 {
			continue
		}
		capacity := capacityFor(ledger, product, takeSide)
		if capacity <= 0 {
			break
		}
		fill := min3(botQty, available, capacity)
		if fill <= 0 {
			continue
		}
		delta := ledger.apply(product, takeSide, price, fill)
		restingBook.Add(price, -fill)
		botQty -= fill
		fills = append(fills, Fill{
			Product:   product,
			Side:      takeSide,
			Price:     price,
			Quantity:  fill,
			CashDelta: delta,
			Liquidity: domain.LiquidityResting,
		})
	}

	// Stage 3: rest the remainder as fresh market depth on the bot's own
	// side of the book.
	if botQty > 0 {
		market.Book(product, botSide).Add(botPrice, botQty)
	}

	return fills
}

// sortedPrices returns the map's keys, descending when desc is set. Bot buys
// are processed highest price first, bot sells lowest first.
func sortedPrices(m map[int64]int64, desc bool) []int64 {
	if len(m) == 0 {
		return nil
	}
	out := make([]int64, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i] > out[j]
		}
		return out[i] < out[j]
	})
	return out
}
