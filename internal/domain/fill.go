package domain

import "time"

// FillLiquidity names the source of the liquidity a fill consumed.
type FillLiquidity string

const (
	// LiquidityMarket is the replayed market book.
	LiquidityMarket FillLiquidity = "market"
	// LiquidityResting is the strategy's own resting quote, lifted by a bot.
	LiquidityResting FillLiquidity = "resting"
)

// Fill records one partial or full execution against the strategy's ledger.
type Fill struct {
	ID        int64
	RunID     string
	Tick      int64
	Product   string
	Side      Side // direction of the strategy's trade
	Price     int64
	Quantity  int64 // unsigned filled amount
	Liquidity FillLiquidity
	CashDelta float64 // signed change to the ledger's cash
	CreatedAt time.Time
}
