package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/ticksim/internal/domain"
	"github.com/alanyoungcy/ticksim/internal/ingest"
	"github.com/alanyoungcy/ticksim/internal/notify"
	"github.com/alanyoungcy/ticksim/internal/server"
	"github.com/alanyoungcy/ticksim/internal/server/handler"
	"github.com/alanyoungcy/ticksim/internal/server/ws"
	"github.com/alanyoungcy/ticksim/internal/sim"
	"github.com/alanyoungcy/ticksim/internal/strategy"
)

// BacktestMode loads the recorded data, builds the configured strategy, and
// replays the full data set through the simulation loop. When the viewer
// server is enabled it runs alongside the replay so connected clients can
// watch the run live, and shuts down once the replay finishes.
func (a *App) BacktestMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting backtest mode",
		slog.String("prices", a.cfg.Data.PricesPath),
		slog.String("strategy", a.cfg.Strategy.Name),
	)

	feed, err := ingest.ReadPrices(a.cfg.Data.PricesPath)
	if err != nil {
		return fmt.Errorf("backtest mode: read prices: %w", err)
	}

	var bots sim.BotSource
	if a.cfg.Data.BotsPath != "" {
		botFeed, err := ingest.ReadBotFlow(a.cfg.Data.BotsPath)
		if err != nil {
			return fmt.Errorf("backtest mode: read bot flow: %w", err)
		}
		bots = botFeed
	}

	strat, err := strategy.Build(strategy.Config{
		Name:   a.cfg.Strategy.Name,
		Size:   a.cfg.Strategy.Size,
		Params: a.cfg.Strategy.Params,
	}, a.logger)
	if err != nil {
		return fmt.Errorf("backtest mode: build strategy: %w", err)
	}

	runner := sim.NewRunner(feed, bots, strat, sim.Options{
		StartCash:   a.cfg.Sim.StartCash,
		Limits:      a.cfg.Products,
		MaxTicks:    a.cfg.Sim.MaxTicks,
		TickDelay:   a.cfg.Sim.TickDelay.Duration,
		EquityEvery: a.cfg.Sim.EquityEvery,
		DataPath:    a.cfg.Data.PricesPath,
	}, sim.Sinks{
		Runs:   deps.RunStore,
		Fills:  deps.FillStore,
		Equity: deps.EquityStore,
		Books:  deps.BookCache,
		Bus:    deps.SignalBus,
	}, a.logger)

	if !a.cfg.Server.Enabled {
		run, err := runner.Run(ctx)
		a.notifyRun(ctx, deps, run, err)
		if err != nil {
			return fmt.Errorf("backtest mode: %w", err)
		}
		a.logRunSummary(ctx, run)
		return nil
	}

	// Viewer server alongside the replay. Cancelling the group context after
	// the run finishes takes the server down with it.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, runCtx := errgroup.WithContext(runCtx)

	a.startViewerServer(runCtx, g, deps)

	g.Go(func() error {
		run, err := runner.Run(runCtx)
		a.notifyRun(runCtx, deps, run, err)
		cancel()
		if err != nil {
			return fmt.Errorf("backtest mode: %w", err)
		}
		a.logRunSummary(runCtx, run)
		return nil
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// ServeMode runs only the viewer server: the REST API over finished runs plus
// the live book cache, and the WebSocket bridge onto the tick result bus.
func (a *App) ServeMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting serve mode")

	g, ctx := errgroup.WithContext(ctx)
	a.startViewerServer(ctx, g, deps)

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}

// ArchiveMode uploads every completed run that the database knows about to
// object storage and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting archive mode")

	runs, err := deps.RunStore.ListRecent(ctx, domain.ListOpts{Limit: 500})
	if err != nil {
		return fmt.Errorf("archive mode: list runs: %w", err)
	}

	var archived int
	for _, run := range runs {
		if run.Status == domain.RunStatusRunning {
			continue
		}
		count, err := deps.Archiver.ArchiveRun(ctx, run.ID)
		if err != nil {
			a.logger.WarnContext(ctx, "archive run failed",
				slog.String("run_id", run.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		archived++
		a.logger.InfoContext(ctx, "run archived",
			slog.String("run_id", run.ID),
			slog.Int64("records", count),
		)
	}

	a.logger.InfoContext(ctx, "archive mode finished",
		slog.Int("runs_archived", archived),
		slog.Int("runs_seen", len(runs)),
	)
	return nil
}

// startViewerServer registers the HTTP server and WebSocket hub goroutines on
// the group. Handlers whose backing store is not wired are left off the mux.
func (a *App) startViewerServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger),
	}
	if deps.RunStore != nil {
		handlers.Runs = handler.NewRunHandler(deps.RunStore, deps.FillStore, deps.EquityStore, a.logger)
	}
	if deps.BookCache != nil {
		handlers.Books = handler.NewBookHandler(deps.BookCache, a.logger)
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			StrategyName: a.cfg.Strategy.Name,
			StartedAt:    time.Now().UTC(),
		})
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{Port: a.cfg.Server.Port}, handlers, hub, a.logger)

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})
}

// notifyRun pushes a completion or failure alert to the configured channels.
func (a *App) notifyRun(ctx context.Context, deps *Dependencies, run domain.Run, runErr error) {
	if deps.Notifier == nil {
		return
	}
	if runErr != nil {
		_ = deps.Notifier.Notify(ctx, notify.EventRunFailed,
			"Backtest failed",
			fmt.Sprintf("run %s (%s): %v", run.ID, run.Strategy, runErr),
		)
		return
	}
	_ = deps.Notifier.Notify(ctx, notify.EventRunFinished,
		"Backtest finished",
		fmt.Sprintf("run %s (%s): %d ticks, PnL %.2f", run.ID, run.Strategy, run.Ticks, run.FinalPnL),
	)
}

// logRunSummary reports the headline result of a finished run.
func (a *App) logRunSummary(ctx context.Context, run domain.Run) {
	a.logger.InfoContext(ctx, "backtest finished",
		slog.String("run_id", run.ID),
		slog.String("strategy", run.Strategy),
		slog.Int64("ticks", run.Ticks),
		slog.Float64("final_cash", run.FinalCash),
		slog.Float64("final_pnl", run.FinalPnL),
		slog.String("status", string(run.Status)),
	)
}
