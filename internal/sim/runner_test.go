package sim

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/ticksim/internal/domain"
	"github.com/alanyoungcy/ticksim/internal/strategy"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeFeed is a scripted PriceSource.
type fakeFeed struct {
	products []string
	lastTick int64
	snaps    map[int64]map[string]domain.BookSnapshot
}

func (f *fakeFeed) Products() []string { return f.products }
func (f *fakeFeed) LastTick() int64    { return f.lastTick }
func (f *fakeFeed) Snapshot(product string, tick int64) domain.BookSnapshot {
	if byProduct, ok := f.snaps[tick]; ok {
		if snap, ok := byProduct[product]; ok {
			return snap
		}
	}
	return domain.BookSnapshot{Product: product, Tick: tick}
}

// fakeBots is a scripted BotSource.
type fakeBots struct {
	byTick map[int64][]domain.BotOrders
}

func (f *fakeBots) Orders(tick int64) []domain.BotOrders { return f.byTick[tick] }

// scriptStrategy emits a fixed order list per tick.
type scriptStrategy struct {
	orders map[int64][]domain.Order
	states []strategy.TickState
	err    error
}

func (s *scriptStrategy) Name() string               { return "script" }
func (s *scriptStrategy) Init(context.Context) error { return nil }
func (s *scriptStrategy) Close() error               { return nil }
func (s *scriptStrategy) OnTick(_ context.Context, state strategy.TickState) ([]domain.Order, error) {
	s.states = append(s.states, state)
	if s.err != nil {
		return nil, s.err
	}
	return s.orders[state.Tick], nil
}

// memSinks collects everything a run reports.
type memSinks struct {
	created  []domain.Run
	finished []domain.Run
	fills    []domain.Fill
	equity   []domain.EquityPoint
	payloads [][]byte
}

func (m *memSinks) Create(_ context.Context, run domain.Run) error {
	m.created = append(m.created, run)
	return nil
}
func (m *memSinks) Finish(_ context.Context, run domain.Run) error {
	m.finished = append(m.finished, run)
	return nil
}
func (m *memSinks) GetByID(context.Context, string) (domain.Run, error) {
	return domain.Run{}, domain.ErrNotFound
}
func (m *memSinks) ListRecent(context.Context, domain.ListOpts) ([]domain.Run, error) {
	return nil, nil
}
func (m *memSinks) InsertBatch(_ context.Context, fills []domain.Fill) error {
	m.fills = append(m.fills, fills...)
	return nil
}
func (m *memSinks) ListByRun(context.Context, string, domain.ListOpts) ([]domain.Fill, error) {
	return nil, nil
}
func (m *memSinks) CountByRun(context.Context, string) (int64, error) { return 0, nil }
func (m *memSinks) Publish(_ context.Context, _ string, payload []byte) error {
	m.payloads = append(m.payloads, payload)
	return nil
}
func (m *memSinks) Subscribe(context.Context, string) (<-chan domain.Message, error) {
	return nil, nil
}

// memEquity collects equity points separately to satisfy EquityStore.
type memEquity struct{ points []domain.EquityPoint }

func (m *memEquity) InsertBatch(_ context.Context, pts []domain.EquityPoint) error {
	m.points = append(m.points, pts...)
	return nil
}
func (m *memEquity) ListByRun(context.Context, string) ([]domain.EquityPoint, error) {
	return nil, nil
}

func twoTickFeed() *fakeFeed {
	return &fakeFeed{
		products: []string{"INK"},
		lastTick: 1,
		snaps: map[int64]map[string]domain.BookSnapshot{
			0: {"INK": {
				Product: "INK",
				Tick:    0,
				Bids:    []domain.PriceLevel{{Price: 99, Quantity: 10}},
				Asks:    []domain.PriceLevel{{Price: 101, Quantity: 3}},
			}},
			// Tick 1 has no data: the book carries over.
		},
	}
}

func TestRunMatchesRestsAndAppliesBotFlow(t *testing.T) {
	feed := twoTickFeed()
	bots := &fakeBots{byTick: map[int64][]domain.BotOrders{
		0: {{Product: "INK", Sells: map[int64]int64{100: 2}}},
	}}
	strat := &scriptStrategy{orders: map[int64][]domain.Order{
		0: {{Product: "INK", Price: 101, Quantity: 5}},
	}}
	sinks := &memSinks{}
	equity := &memEquity{}

	r := NewRunner(feed, bots, strat, Options{
		StartCash:   100000,
		Limits:      map[string]int64{"INK": 20},
		EquityEvery: 1,
	}, Sinks{Runs: sinks, Fills: sinks, Equity: equity, Bus: sinks}, testLogger())

	run, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if run.Status != domain.RunStatusFinished {
		t.Fatalf("status = %s", run.Status)
	}
	if run.Ticks != 2 {
		t.Fatalf("ticks = %d, want 2", run.Ticks)
	}

	// Buy 5 @ 101: 3 filled from the market ask, remainder 2 rests as a
	// strategy bid at 101. Bot sell 2 @ 100 finds no market bid >= 100 and
	// lifts the strategy's resting bid instead.
	if got := r.Ledger().Inventory("INK"); got != 5 {
		t.Fatalf("inventory = %d, want 5", got)
	}
	wantCash := 100000.0 - 3*101 - 2*101
	if got := r.Ledger().Cash(); got != wantCash {
		t.Fatalf("cash = %f, want %f", got, wantCash)
	}

	if len(sinks.fills) != 2 {
		t.Fatalf("fills = %+v", sinks.fills)
	}
	if sinks.fills[0].Liquidity != domain.LiquidityMarket || sinks.fills[0].Quantity != 3 {
		t.Fatalf("market fill = %+v", sinks.fills[0])
	}
	if sinks.fills[1].Liquidity != domain.LiquidityResting || sinks.fills[1].Quantity != 2 {
		t.Fatalf("resting fill = %+v", sinks.fills[1])
	}
	for _, f := range sinks.fills {
		if f.RunID != run.ID || f.Side != domain.SideBuy {
			t.Fatalf("fill metadata = %+v", f)
		}
	}

	// One equity point per tick plus one tick result per tick on the bus.
	if len(equity.points) != 2 {
		t.Fatalf("equity points = %d, want 2", len(equity.points))
	}
	if len(sinks.payloads) != 2 {
		t.Fatalf("bus payloads = %d, want 2", len(sinks.payloads))
	}
	if len(sinks.created) != 1 || len(sinks.finished) != 1 {
		t.Fatalf("run store calls: created %d finished %d", len(sinks.created), len(sinks.finished))
	}

	// Only the remaining bid survives; mark-to-market uses it as the mid.
	wantPnL := wantCash + 5*99
	if run.FinalPnL != wantPnL {
		t.Fatalf("final pnl = %f, want %f", run.FinalPnL, wantPnL)
	}
}

func TestRunCarriesBookAcrossMissingTicks(t *testing.T) {
	feed := twoTickFeed()
	strat := &scriptStrategy{}

	r := NewRunner(feed, nil, strat, Options{
		StartCash: 100000,
		Limits:    map[string]int64{"INK": 20},
	}, Sinks{}, testLogger())

	if _, err := r.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	if len(strat.states) != 2 {
		t.Fatalf("strategy saw %d ticks", len(strat.states))
	}
	// Tick 1 had no fresh data, so the strategy sees tick 0's book again.
	snap := strat.states[1].Books["INK"]
	if snap.BestBid() != 99 || snap.BestAsk() != 101 {
		t.Fatalf("carried book bbo = %d/%d", snap.BestBid(), snap.BestAsk())
	}
}

func TestRunMaxTicksCapsReplay(t *testing.T) {
	feed := twoTickFeed()
	strat := &scriptStrategy{}

	r := NewRunner(feed, nil, strat, Options{
		StartCash: 100000,
		Limits:    map[string]int64{"INK": 20},
		MaxTicks:  1,
	}, Sinks{}, testLogger())

	run, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.Ticks != 1 {
		t.Fatalf("ticks = %d, want 1", run.Ticks)
	}
}

func TestRunStrategyErrorFailsRun(t *testing.T) {
	feed := twoTickFeed()
	strat := &scriptStrategy{err: errors.New("boom")}

	r := NewRunner(feed, nil, strat, Options{
		StartCash: 100000,
		Limits:    map[string]int64{"INK": 20},
	}, Sinks{}, testLogger())

	run, err := r.Run(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s", run.Status)
	}
}

func TestRunCancelledContext(t *testing.T) {
	feed := twoTickFeed()
	strat := &scriptStrategy{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(feed, nil, strat, Options{
		StartCash: 100000,
		Limits:    map[string]int64{"INK": 20},
	}, Sinks{}, testLogger())

	run, err := r.Run(ctx)
	if !errors.Is(err, domain.ErrContextDone) {
		t.Fatalf("err = %v, want ErrContextDone", err)
	}
	if run.Status != domain.RunStatusFailed {
		t.Fatalf("status = %s", run.Status)
	}
}
