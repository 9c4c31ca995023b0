package domain

import "time"

// PriceLevel is a single price+quantity entry on one side of a book.
type PriceLevel struct {
	Price    int64
	Quantity int64
}

// BookSnapshot is a point-in-time view of one product's book, with bids
// sorted best (highest) first and asks sorted best (lowest) first. It is
// what ingestion produces per tick and what caches and viewers consume.
type BookSnapshot struct {
	Product   string
	Tick      int64
	Bids      []PriceLevel
	Asks      []PriceLevel
	Timestamp time.Time
}

// BestBid returns the highest bid price, or 0 if there are no bids.
func (s BookSnapshot) BestBid() int64 {
	if len(s.Bids) == 0 {
		return 0
	}
	return s.Bids[0].Price
}

// BestAsk returns the lowest ask price, or 0 if there are no asks.
func (s BookSnapshot) BestAsk() int64 {
	if len(s.Asks) == 0 {
		return 0
	}
	return s.Asks[0].Price
}

// Mid returns the midpoint of the best bid and ask. With only one side
// present it returns that side's best; with neither it returns 0.
func (s BookSnapshot) Mid() float64 {
	bid, ask := s.BestBid(), s.BestAsk()
	switch {
	case bid > 0 && ask > 0:
		return float64(bid+ask) / 2
	case bid > 0:
		return float64(bid)
	case ask > 0:
		return float64(ask)
	default:
		return 0
	}
}

// BotOrders is one tick's synthetic counter-party flow for a single product:
// price→quantity per side. It has no resting lifecycle beyond its tick.
type BotOrders struct {
	Product string
	Buys    map[int64]int64
	Sells   map[int64]int64
}
