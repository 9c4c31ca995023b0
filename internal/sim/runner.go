// Package sim drives a backtest: it replays recorded market data tick by
// tick, asks the strategy for orders, matches them against the book, applies
// synthetic bot flow, and marks the portfolio to market. One tick is one
// synchronous unit of work; nothing in the loop is concurrent.
package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/ticksim/internal/domain"
	"github.com/alanyoungcy/ticksim/internal/engine"
	"github.com/alanyoungcy/ticksim/internal/strategy"
)

// PriceSource supplies per-tick, per-product book snapshots.
type PriceSource interface {
	Products() []string
	LastTick() int64
	Snapshot(product string, tick int64) domain.BookSnapshot
}

// BotSource supplies per-tick synthetic counter-party flow.
type BotSource interface {
	Orders(tick int64) []domain.BotOrders
}

// Sinks are the optional destinations a run reports into. Any nil field is
// skipped; a run with all-nil sinks is a pure in-memory backtest.
type Sinks struct {
	Runs   domain.RunStore
	Fills  domain.FillStore
	Equity domain.EquityStore
	Books  domain.BookCache
	Bus    domain.SignalBus
}

// Options holds run parameters.
type Options struct {
	StartCash float64
	Limits    map[string]int64 // product -> position limit, immutable per run
	MaxTicks  int64            // 0 replays the whole file
	TickDelay time.Duration    // 0 runs flat out
	// EquityEvery controls how often equity points are recorded, in ticks.
	EquityEvery int64
	DataPath    string
}

// flushEvery is how many buffered fills/equity points accumulate before a
// batch insert.
const flushEvery = 256

// Runner executes one backtest run.
type Runner struct {
	prices PriceSource
	bots   BotSource
	strat  strategy.Strategy
	opts   Options
	sinks  Sinks
	logger *slog.Logger

	market  *engine.Depth
	resting *engine.Depth
	ledger  *engine.Ledger
}

// NewRunner wires a runner. bots may be nil when no bot flow file was
// configured.
func NewRunner(prices PriceSource, bots BotSource, strat strategy.Strategy, opts Options, sinks Sinks, logger *slog.Logger) *Runner {
	if opts.EquityEvery <= 0 {
		opts.EquityEvery = 1
	}
	return &Runner{
		prices:  prices,
		bots:    bots,
		strat:   strat,
		opts:    opts,
		sinks:   sinks,
		logger:  logger.With(slog.String("component", "sim")),
		market:  engine.NewDepth(),
		resting: engine.NewDepth(),
		ledger:  engine.NewLedger(opts.StartCash, opts.Limits),
	}
}

// Ledger exposes the run's portfolio state, primarily for reporting after
// Run returns.
func (r *Runner) Ledger() *engine.Ledger { return r.ledger }

// Run replays the configured data through the strategy and returns the
// completed run record. The returned run is also persisted through the
// sinks when they are configured.
func (r *Runner) Run(ctx context.Context) (domain.Run, error) {
	run := domain.Run{
		ID:        uuid.NewString(),
		Strategy:  r.strat.Name(),
		DataPath:  r.opts.DataPath,
		Products:  r.prices.Products(),
		StartCash: r.opts.StartCash,
		Status:    domain.RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	if r.sinks.Runs != nil {
		if err := r.sinks.Runs.Create(ctx, run); err != nil {
			return run, fmt.Errorf("sim: create run: %w", err)
		}
	}

	if err := r.strat.Init(ctx); err != nil {
		return r.finish(ctx, run, 0, fmt.Errorf("sim: init strategy: %w", err))
	}
	defer r.strat.Close()

	lastTick := r.prices.LastTick()
	if r.opts.MaxTicks > 0 && r.opts.MaxTicks-1 < lastTick {
		lastTick = r.opts.MaxTicks - 1
	}

	r.logger.Info("run started",
		slog.String("run_id", run.ID),
		slog.String("strategy", run.Strategy),
		slog.Int64("ticks", lastTick+1),
		slog.Any("products", run.Products),
	)

	var (
		fillBuf   []domain.Fill
		equityBuf []domain.EquityPoint
		ticks     int64
	)
	for tick := int64(0); tick <= lastTick; tick++ {
		if err := ctx.Err(); err != nil {
			return r.finish(ctx, run, ticks, fmt.Errorf("sim: %w: %w", domain.ErrContextDone, err))
		}

		result, err := r.step(ctx, run.ID, tick)
		if err != nil {
			return r.finish(ctx, run, ticks, err)
		}
		ticks++

		fillBuf = append(fillBuf, result.Fills...)
		if tick%r.opts.EquityEvery == 0 {
			equityBuf = append(equityBuf, domain.EquityPoint{
				RunID:     run.ID,
				Tick:      tick,
				Cash:      result.Cash,
				PnL:       result.PnL,
				Positions: result.Positions,
			})
		}
		if len(fillBuf) >= flushEvery || len(equityBuf) >= flushEvery {
			if err := r.flush(ctx, &fillBuf, &equityBuf); err != nil {
				return r.finish(ctx, run, ticks, err)
			}
		}

		if err := r.publish(ctx, result); err != nil {
			return r.finish(ctx, run, ticks, err)
		}

		if r.opts.TickDelay > 0 {
			select {
			case <-time.After(r.opts.TickDelay):
			case <-ctx.Done():
			}
		}
	}

	if err := r.flush(ctx, &fillBuf, &equityBuf); err != nil {
		return r.finish(ctx, run, ticks, err)
	}
	return r.finish(ctx, run, ticks, nil)
}

// step processes one tick and returns its result.
func (r *Runner) step(ctx context.Context, runID string, tick int64) (domain.TickResult, error) {
	// Merge the tick's fresh market data over whatever survived the
	// previous tick. Missing data leaves the carried-over book untouched.
	books := make(map[string]domain.BookSnapshot, len(r.opts.Limits))
	now := time.Now().UTC()
	for _, product := range r.prices.Products() {
		r.market.Merge(r.prices.Snapshot(product, tick))
		books[product] = r.market.Snapshot(product, tick, now)
	}

	state := strategy.TickState{
		Tick:      tick,
		Books:     books,
		Positions: r.ledger.Positions(),
		Cash:      r.ledger.Cash(),
	}
	orders, err := r.strat.OnTick(ctx, state)
	if err != nil {
		return domain.TickResult{}, fmt.Errorf("sim: strategy tick %d: %w", tick, err)
	}

	var engineFills []engine.Fill
	for _, order := range orders {
		res := engine.Match(order, r.market, r.ledger)
		engineFills = append(engineFills, res.Fills...)
		// Unfilled remainder rests as the strategy's own quote, where bot
		// flow can lift it on this or a later tick.
		if res.Remaining > 0 && order.Valid() {
			r.resting.Book(order.Product, order.Side()).Add(order.Price, res.Remaining)
		}
	}

	if r.bots != nil {
		engineFills = append(engineFills, engine.ApplyBotFlow(r.bots.Orders(tick), r.market, r.resting, r.ledger)...)
	}
	r.market.Compact()
	r.resting.Compact()

	mids := make(map[string]float64, len(books))
	for product := range books {
		mids[product] = r.market.Mid(product)
	}

	fills := make([]domain.Fill, 0, len(engineFills))
	for _, f := range engineFills {
		fills = append(fills, domain.Fill{
			RunID:     runID,
			Tick:      tick,
			Product:   f.Product,
			Side:      f.Side,
			Price:     f.Price,
			Quantity:  f.Quantity,
			Liquidity: f.Liquidity,
			CashDelta: f.CashDelta,
			CreatedAt: now,
		})
	}

	return domain.TickResult{
		RunID:     runID,
		Tick:      tick,
		Fills:     fills,
		Cash:      r.ledger.Cash(),
		PnL:       r.ledger.MarkToMarket(mids),
		Positions: r.ledger.Positions(),
	}, nil
}

// publish pushes the tick result to the live viewers: book snapshots into
// the cache and the result onto the bus.
func (r *Runner) publish(ctx context.Context, result domain.TickResult) error {
	if r.sinks.Books != nil {
		now := time.Now().UTC()
		for _, product := range r.prices.Products() {
			snap := r.market.Snapshot(product, result.Tick, now)
			if err := r.sinks.Books.SetSnapshot(ctx, product, snap); err != nil {
				return fmt.Errorf("sim: cache snapshot: %w", err)
			}
		}
	}
	if r.sinks.Bus != nil {
		payload, err := json.Marshal(result)
		if err != nil {
			return fmt.Errorf("sim: marshal tick result: %w", err)
		}
		if err := r.sinks.Bus.Publish(ctx, RunChannel(result.RunID), payload); err != nil {
			return fmt.Errorf("sim: publish tick result: %w", err)
		}
	}
	return nil
}

// flush batch-inserts and resets the fill and equity buffers.
func (r *Runner) flush(ctx context.Context, fills *[]domain.Fill, equity *[]domain.EquityPoint) error {
	if r.sinks.Fills != nil && len(*fills) > 0 {
		if err := r.sinks.Fills.InsertBatch(ctx, *fills); err != nil {
			return fmt.Errorf("sim: insert fills: %w", err)
		}
	}
	if r.sinks.Equity != nil && len(*equity) > 0 {
		if err := r.sinks.Equity.InsertBatch(ctx, *equity); err != nil {
			return fmt.Errorf("sim: insert equity points: %w", err)
		}
	}
	*fills = (*fills)[:0]
	*equity = (*equity)[:0]
	return nil
}

// finish closes out the run record, persisting the terminal state even when
// the run failed part-way.
func (r *Runner) finish(ctx context.Context, run domain.Run, ticks int64, runErr error) (domain.Run, error) {
	mids := make(map[string]float64)
	for _, product := range r.prices.Products() {
		mids[product] = r.market.Mid(product)
	}

	now := time.Now().UTC()
	run.Ticks = ticks
	run.FinalCash = r.ledger.Cash()
	run.FinalPnL = r.ledger.MarkToMarket(mids)
	run.FinishedAt = &now
	run.Status = domain.RunStatusFinished
	if runErr != nil {
		run.Status = domain.RunStatusFailed
	}

	if r.sinks.Runs != nil {
		if err := r.sinks.Runs.Finish(ctx, run); err != nil {
			if runErr == nil {
				runErr = fmt.Errorf("sim: finish run: %w", err)
			} else {
				r.logger.Error("finish run", slog.String("run_id", run.ID), slog.Any("error", err))
			}
		}
	}

	r.logger.Info("run finished",
		slog.String("run_id", run.ID),
		slog.String("status", string(run.Status)),
		slog.Int64("ticks", run.Ticks),
		slog.Float64("final_cash", run.FinalCash),
		slog.Float64("final_pnl", run.FinalPnL),
	)
	return run, runErr
}

// RunChannel names the bus channel carrying a run's tick results.
func RunChannel(runID string) string {
	return "ticksim:run:" + runID
}
