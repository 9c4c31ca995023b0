package domain

import "time"

// RunStatus tracks a simulation run's lifecycle.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusFinished RunStatus = "finished"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one backtest: a strategy replayed over one data set.
type Run struct {
	ID         string // UUID
	Strategy   string
	DataPath   string
	Products   []string
	Ticks      int64
	StartCash  float64
	FinalCash  float64
	FinalPnL   float64
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
}

// EquityPoint is one tick's portfolio mark for the equity curve.
type EquityPoint struct {
	RunID     string
	Tick      int64
	Cash      float64
	PnL       float64
	Positions map[string]int64
}

// TickResult summarizes one processed tick and is what viewers subscribe to.
type TickResult struct {
	RunID     string           `json:"run_id"`
	Tick      int64            `json:"tick"`
	Fills     []Fill           `json:"fills,omitempty"`
	Cash      float64          `json:"cash"`
	PnL       float64          `json:"pnl"`
	Positions map[string]int64 `json:"positions,omitempty"`
}
