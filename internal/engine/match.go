package engine

import "github.com/alanyoungcy/ticksim/internal/domain"

// Fill is one execution committed to the ledger during matching or bot-flow
// processing. The runner enriches these with run metadata before persisting.
type Fill struct {
	Product   string
	Side      domain.Side // direction of the strategy's trade
	Price     int64
	Quantity  int64
	CashDelta float64
	Liquidity domain.FillLiquidity
}

// Result reports the outcome of matching one order.
type Result struct {
	Filled    int64
	Remaining int64
	Fills     []Fill
}

// Match crosses one strategy order against the opposite side of the market
// depth in price priority, clamping every fill to the ledger's remaining
// position-limit capacity. The book and ledger are mutated per crossed
// level. Running out of liquidity or capacity is a normal partial outcome,
// not an error; malformed orders are no-ops.
func Match(order domain.Order, depth *Depth, ledger *Ledger) Result {
	if !order.Valid() {
		return Result{}
	}

	side := order.Side()
	book := depth.Book(order.Product, side.Opposite())
	remaining := order.Abs()

	res := Result{}
	for _, price := range book.Prices() {
		if remaining == 0 {
			break
		}
		if !crosses(side, order.Price, price) {
			// Book iteration is in priority order, so nothing further
			// can cross either.
			break
		}
		available := book.QuantityAt(price)
		if available <= 0 {
			// Stale empty level: skip it, only a non-crossing price
			// ends the scan.
			continue
		}

		capacity := capacityFor(ledger, order.Product, side)
		if capacity <= 0 {
			break
		}

		fill := min3(remaining, available, capacity)
		if fill <= 0 {
			continue
		}

		delta := ledger.apply(order.Product, side, price, fill)
		book.Add(price, -fill)
		remaining -= fill
		res.Filled += fill
		res.Fills = append(res.Fills, Fill{
			Product:   order.Product,
			Side:      side,
			Price:     price,
			Quantity:  fill,
			CashDelta: delta,
			Liquidity: domain.LiquidityMarket,
		})
	}

	res.Remaining = remaining
	return res
}

// crosses reports whether an order at limit can trade against a resting
// level at price.
func crosses(side domain.Side, limit, price int64) bool {
	if side == domain.SideBuy {
		return price <= limit
	}
	return price >= limit
}

// capacityFor returns the ledger's remaining room in the order's direction.
func capacityFor(l *Ledger, product string, side domain.Side) int64 {
	if side == domain.SideBuy {
		return l.CapacityToBuy(product)
	}
	return l.CapacityToSell(product)
}

func min3(a, b, c int64) int64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
