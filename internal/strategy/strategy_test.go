package strategy

import (
	"context"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func snapshotWith(product string, bid, ask int64) domain.BookSnapshot {
	return domain.BookSnapshot{
		Product: product,
		Bids:    []domain.PriceLevel{{Price: bid, Quantity: 10}},
		Asks:    []domain.PriceLevel{{Price: ask, Quantity: 10}},
	}
}

func TestPriceTrackerStats(t *testing.T) {
	pt := NewPriceTracker(4)

	for _, p := range []float64{10, 12, 14, 16} {
		pt.Track("INK", p)
	}
	if !pt.Full("INK") {
		t.Fatal("window should be full after 4 observations")
	}
	if got := pt.Average("INK"); got != 13 {
		t.Fatalf("average = %f, want 13", got)
	}
	wantVol := math.Sqrt(5) // population stddev of {10,12,14,16}
	if got := pt.Volatility("INK"); math.Abs(got-wantVol) > 1e-9 {
		t.Fatalf("volatility = %f, want %f", got, wantVol)
	}

	// Window slides: a fifth point evicts the first.
	pt.Track("INK", 18)
	if got := pt.Average("INK"); got != 15 {
		t.Fatalf("average after slide = %f, want 15", got)
	}
}

func TestPriceTrackerZScoreRequiresFullWindow(t *testing.T) {
	pt := NewPriceTracker(5)
	pt.Track("INK", 100)
	pt.Track("INK", 102)
	if z := pt.ZScore("INK", 200); z != 0 {
		t.Fatalf("z-score before window full = %f, want 0", z)
	}
}

func TestPriceTrackerTrend(t *testing.T) {
	pt := NewPriceTracker(10)
	if pt.Trend("INK") != 0 {
		t.Fatal("unseen product should have no trend")
	}
	pt.Track("INK", 100)
	// Rising prices pull the short EMA above the long EMA.
	for p := 101.0; p <= 120; p++ {
		pt.Track("INK", p)
	}
	if pt.Trend("INK") != 1 {
		t.Fatal("expected uptrend after monotonic rise")
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	r.Register("custom", func(cfg Config, logger *slog.Logger) (Strategy, error) {
		return NewMeanReversion(cfg, NewPriceTracker(30), logger), nil
	})

	if _, err := r.Build(Config{Name: "custom", Size: 5}, testLogger()); err != nil {
		t.Fatalf("build: %v", err)
	}
	if _, err := r.Build(Config{Name: "nope"}, testLogger()); err == nil {
		t.Fatal("expected error for unregistered strategy")
	}
	if got := r.List(); len(got) != 1 || got[0] != "custom" {
		t.Fatalf("list = %v", got)
	}
}

func TestBuildUsesDefaultRegistry(t *testing.T) {
	for _, name := range []string{"mean_reversion", "market_maker"} {
		s, err := Build(Config{Name: name, Size: 5}, testLogger())
		if err != nil {
			t.Fatalf("build %s: %v", name, err)
		}
		if s.Name() != name {
			t.Fatalf("built %q, want %q", s.Name(), name)
		}
	}
	if got := Default().List(); len(got) != 2 {
		t.Fatalf("default registry = %v, want both built-ins", got)
	}
}

func TestBuildUnknownStrategy(t *testing.T) {
	if _, err := Build(Config{Name: "momo"}, testLogger()); err == nil {
		t.Fatal("expected error for unknown strategy name")
	}
}

func TestMeanReversionRangeBoundQuotesBothSides(t *testing.T) {
	mr := NewMeanReversion(Config{Size: 5}, NewPriceTracker(30), testLogger())

	state := TickState{
		Tick:      0,
		Books:     map[string]domain.BookSnapshot{"INK": snapshotWith("INK", 99, 101)},
		Positions: map[string]int64{},
	}
	orders, err := mr.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	// First tick: no trend yet, range-bound regime quotes bid and ask.
	want := []domain.Order{
		{Product: "INK", Price: 99, Quantity: 5},
		{Product: "INK", Price: 101, Quantity: -5},
	}
	if len(orders) != len(want) {
		t.Fatalf("orders = %+v, want %+v", orders, want)
	}
	for i := range want {
		if orders[i] != want[i] {
			t.Fatalf("order[%d] = %+v, want %+v", i, orders[i], want[i])
		}
	}
}

func TestMeanReversionSkipsOneSidedBook(t *testing.T) {
	mr := NewMeanReversion(Config{Size: 5}, NewPriceTracker(30), testLogger())
	state := TickState{
		Books: map[string]domain.BookSnapshot{
			"INK": {Product: "INK", Asks: []domain.PriceLevel{{Price: 101, Quantity: 3}}},
		},
	}
	orders, err := mr.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 0 {
		t.Fatalf("expected no orders for one-sided book, got %+v", orders)
	}
}

func TestMarketMakerStepsInsideWideSpread(t *testing.T) {
	mm := NewMarketMaker(Config{Size: 5}, NewPriceTracker(30), testLogger())

	state := TickState{
		Books:     map[string]domain.BookSnapshot{"INK": snapshotWith("INK", 95, 105)},
		Positions: map[string]int64{},
	}
	orders, err := mm.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 {
		t.Fatalf("orders = %+v", orders)
	}
	if orders[0].Price != 96 || orders[0].Quantity != 5 {
		t.Fatalf("bid quote = %+v", orders[0])
	}
	if orders[1].Price != 104 || orders[1].Quantity != -5 {
		t.Fatalf("ask quote = %+v", orders[1])
	}
}

func TestMarketMakerJoinsTightSpread(t *testing.T) {
	mm := NewMarketMaker(Config{Size: 5}, NewPriceTracker(30), testLogger())

	state := TickState{
		Books:     map[string]domain.BookSnapshot{"INK": snapshotWith("INK", 100, 101)},
		Positions: map[string]int64{},
	}
	orders, err := mm.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if orders[0].Price != 100 || orders[1].Price != 101 {
		t.Fatalf("quotes = %+v", orders)
	}
}

func TestMarketMakerSkewsWithInventory(t *testing.T) {
	mm := NewMarketMaker(Config{Size: 5}, NewPriceTracker(30), testLogger())

	// Fully long: the bid disappears, the offer stays.
	state := TickState{
		Books:     map[string]domain.BookSnapshot{"INK": snapshotWith("INK", 100, 101)},
		Positions: map[string]int64{"INK": 5},
	}
	orders, err := mm.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 1 || orders[0].Quantity != -5 {
		t.Fatalf("expected ask-only quote, got %+v", orders)
	}

	// Partially short: the offer shrinks.
	state.Positions["INK"] = -2
	orders, err = mm.OnTick(context.Background(), state)
	if err != nil {
		t.Fatal(err)
	}
	if len(orders) != 2 || orders[0].Quantity != 5 || orders[1].Quantity != -3 {
		t.Fatalf("skewed quotes = %+v", orders)
	}
}
