package engine

import (
	"testing"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

func sellBook(d *Depth, product string, levels map[int64]int64) {
	b := d.Book(product, domain.SideSell)
	for p, q := range levels {
		b.Set(p, q)
	}
}

func buyBook(d *Depth, product string, levels map[int64]int64) {
	b := d.Book(product, domain.SideBuy)
	for p, q := range levels {
		b.Set(p, q)
	}
}

func TestMatchBuyFullScan(t *testing.T) {
	// Spec scenario: buy 5 @ 105 against asks {100:3, 106:10}, limit 20.
	depth := NewDepth()
	sellBook(depth, "INK", map[int64]int64{100: 3, 106: 10})
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	res := Match(domain.Order{Product: "INK", Price: 105, Quantity: 5}, depth, ledger)

	if res.Filled != 3 || res.Remaining != 2 {
		t.Fatalf("filled=%d remaining=%d, want 3/2", res.Filled, res.Remaining)
	}
	if inv := ledger.Inventory("INK"); inv != 3 {
		t.Fatalf("inventory = %d, want 3", inv)
	}
	if cash := ledger.Cash(); cash != -300 {
		t.Fatalf("cash = %f, want -300", cash)
	}

	asks := depth.Book("INK", domain.SideSell)
	asks.Compact()
	if asks.QuantityAt(100) != 0 || asks.QuantityAt(106) != 10 {
		t.Fatalf("asks after match: @100=%d @106=%d", asks.QuantityAt(100), asks.QuantityAt(106))
	}
	if len(res.Fills) != 1 || res.Fills[0].Price != 100 || res.Fills[0].Quantity != 3 {
		t.Fatalf("fills = %+v", res.Fills)
	}
}

func TestMatchCapacityClamp(t *testing.T) {
	// Spec scenario: limit 5, already long 3, buy 10 @ 100 against {100:100}.
	depth := NewDepth()
	sellBook(depth, "INK", map[int64]int64{100: 100})
	ledger := NewLedger(0, map[string]int64{"INK": 5})
	ledger.apply("INK", domain.SideBuy, 100, 3)

	res := Match(domain.Order{Product: "INK", Price: 100, Quantity: 10}, depth, ledger)

	if res.Filled != 2 || res.Remaining != 8 {
		t.Fatalf("filled=%d remaining=%d, want 2/8", res.Filled, res.Remaining)
	}
	if inv := ledger.Inventory("INK"); inv != 5 {
		t.Fatalf("inventory = %d, want 5 (at limit)", inv)
	}
}

func TestMatchSellSymmetric(t *testing.T) {
	depth := NewDepth()
	buyBook(depth, "INK", map[int64]int64{102: 4, 100: 6})
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	res := Match(domain.Order{Product: "INK", Price: 101, Quantity: -7}, depth, ledger)

	// Only 102 crosses a 101 sell limit (descending scan stops at 100).
	if res.Filled != 4 || res.Remaining != 3 {
		t.Fatalf("filled=%d remaining=%d, want 4/3", res.Filled, res.Remaining)
	}
	if inv := ledger.Inventory("INK"); inv != -4 {
		t.Fatalf("inventory = %d, want -4", inv)
	}
	if cash := ledger.Cash(); cash != 408 {
		t.Fatalf("cash = %f, want 408 (4*102)", cash)
	}
}

func TestMatchNoCrossLeavesBookUntouched(t *testing.T) {
	depth := NewDepth()
	sellBook(depth, "INK", map[int64]int64{106: 10})
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	res := Match(domain.Order{Product: "INK", Price: 105, Quantity: 5}, depth, ledger)

	if res.Filled != 0 || res.Remaining != 5 {
		t.Fatalf("filled=%d remaining=%d, want 0/5", res.Filled, res.Remaining)
	}
	if got := depth.Book("INK", domain.SideSell).QuantityAt(106); got != 10 {
		t.Fatalf("book mutated on no-cross: qty@106=%d", got)
	}
	if ledger.Cash() != 0 || ledger.Inventory("INK") != 0 {
		t.Fatal("ledger mutated on no-cross")
	}
}

func TestMatchSkipsStaleEmptyLevel(t *testing.T) {
	// A crossed level with zero remaining quantity must be skipped, not
	// terminate the scan.
	depth := NewDepth()
	asks := depth.Book("INK", domain.SideSell)
	asks.Set(100, 0)
	asks.Set(103, 5)
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	res := Match(domain.Order{Product: "INK", Price: 104, Quantity: 4}, depth, ledger)

	if res.Filled != 4 {
		t.Fatalf("filled=%d, want 4 from the level behind the stale one", res.Filled)
	}
	if len(res.Fills) != 1 || res.Fills[0].Price != 103 {
		t.Fatalf("fills = %+v, want single fill at 103", res.Fills)
	}
}

func TestMatchMalformedOrdersAreNoOps(t *testing.T) {
	depth := NewDepth()
	sellBook(depth, "INK", map[int64]int64{100: 5})
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	for _, order := range []domain.Order{
		{Product: "INK", Price: 100, Quantity: 0},
		{Product: "INK", Price: 0, Quantity: 5},
		{Product: "INK", Price: -3, Quantity: 5},
		{Product: "", Price: 100, Quantity: 5},
	} {
		res := Match(order, depth, ledger)
		if res.Filled != 0 || len(res.Fills) != 0 {
			t.Fatalf("order %+v should be a no-op, got %+v", order, res)
		}
	}
	if ledger.Cash() != 0 {
		t.Fatal("malformed orders must not touch the ledger")
	}
}

func TestMatchWalksMultipleLevels(t *testing.T) {
	depth := NewDepth()
	sellBook(depth, "INK", map[int64]int64{100: 2, 101: 2, 102: 2})
	ledger := NewLedger(0, map[string]int64{"INK": 20})

	res := Match(domain.Order{Product: "INK", Price: 102, Quantity: 5}, depth, ledger)

	if res.Filled != 5 || res.Remaining != 0 {
		t.Fatalf("filled=%d remaining=%d, want 5/0", res.Filled, res.Remaining)
	}
	if len(res.Fills) != 3 {
		t.Fatalf("fills = %+v, want fills at 100, 101, 102", res.Fills)
	}
	wantCash := -(2*100 + 2*101 + 1*102.0)
	if ledger.Cash() != wantCash {
		t.Fatalf("cash = %f, want %f", ledger.Cash(), wantCash)
	}
	if got := depth.Book("INK", domain.SideSell).QuantityAt(102); got != 1 {
		t.Fatalf("partially consumed level qty@102 = %d, want 1", got)
	}
}
