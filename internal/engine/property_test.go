package engine

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// Capacity invariant: whatever mix of strategy orders and bot flow runs,
// |inventory| never exceeds the position limit and book quantities never go
// negative.
func TestProperty_CapacityAndBookInvariants(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		limit := rapid.Int64Range(1, 50).Draw(t, "limit")
		market := NewDepth()
		resting := NewDepth()
		ledger := NewLedger(0, map[string]int64{"INK": limit})

		// Seed the market book on both sides.
		nLevels := rapid.IntRange(0, 6).Draw(t, "levels")
		for i := 0; i < nLevels; i++ {
			price := rapid.Int64Range(90, 110).Draw(t, "price")
			qty := rapid.Int64Range(1, 30).Draw(t, "qty")
			if rapid.Bool().Draw(t, "isAsk") {
				market.Book("INK", domain.SideSell).Add(price, qty)
			} else {
				market.Book("INK", domain.SideBuy).Add(price, qty)
			}
		}

		steps := rapid.IntRange(1, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			if rapid.Bool().Draw(t, "isStrategyOrder") {
				order := domain.Order{
					Product:  "INK",
					Price:    rapid.Int64Range(90, 110).Draw(t, "orderPrice"),
					Quantity: rapid.Int64Range(-40, 40).Draw(t, "orderQty"),
				}
				res := Match(order, market, ledger)
				if res.Remaining > 0 && order.Valid() {
					// Rest the remainder the way the runner does.
					resting.Book("INK", order.Side()).Add(order.Price, res.Remaining)
				}
			} else {
				bo := domain.BotOrders{Product: "INK"}
				price := rapid.Int64Range(90, 110).Draw(t, "botPrice")
				qty := rapid.Int64Range(1, 40).Draw(t, "botQty")
				if rapid.Bool().Draw(t, "botBuys") {
					bo.Buys = map[int64]int64{price: qty}
				} else {
					bo.Sells = map[int64]int64{price: qty}
				}
				ApplyBotFlow([]domain.BotOrders{bo}, market, resting, ledger)
			}

			inv := ledger.Inventory("INK")
			if inv > limit || inv < -limit {
				t.Fatalf("step %d: inventory %d outside limit %d", i, inv, limit)
			}
			for _, d := range []*Depth{market, resting} {
				for _, product := range d.Products() {
					for _, side := range []domain.Side{domain.SideBuy, domain.SideSell} {
						book := d.Book(product, side)
						for _, p := range book.Prices() {
							if book.QuantityAt(p) < 0 {
								t.Fatalf("step %d: negative quantity at %s/%s/%d", i, product, side, p)
							}
						}
					}
				}
			}
		}
	})
}

// Cash conservation: the ledger's cash always equals the accumulated signed
// notional of the fills the engine reported.
func TestProperty_CashMatchesFills(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		market := NewDepth()
		ledger := NewLedger(0, map[string]int64{"INK": 100})

		nLevels := rapid.IntRange(1, 5).Draw(t, "levels")
		for i := 0; i < nLevels; i++ {
			market.Book("INK", domain.SideSell).Add(
				rapid.Int64Range(95, 105).Draw(t, "price"),
				rapid.Int64Range(1, 20).Draw(t, "qty"),
			)
		}

		var cash float64
		orders := rapid.IntRange(1, 8).Draw(t, "orders")
		for i := 0; i < orders; i++ {
			res := Match(domain.Order{
				Product:  "INK",
				Price:    rapid.Int64Range(95, 105).Draw(t, "limit"),
				Quantity: rapid.Int64Range(1, 30).Draw(t, "orderQty"),
			}, market, ledger)
			for _, f := range res.Fills {
				cash += f.CashDelta
				if f.CashDelta != -float64(f.Quantity*f.Price) {
					t.Fatalf("buy fill cash delta %f != -%d*%d", f.CashDelta, f.Quantity, f.Price)
				}
			}
		}

		if ledger.Cash() != cash {
			t.Fatalf("ledger cash %f diverged from fill sum %f", ledger.Cash(), cash)
		}
	})
}
