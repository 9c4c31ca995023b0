package engine

import "github.com/alanyoungcy/ticksim/internal/domain"

// Ledger is the single source of truth for the strategy's cash and signed
// per-product inventory. Position limits are fixed at construction; every
// fill path in this package clamps to the remaining capacity, so
// |inventory| <= limit holds after every mutation.
type Ledger struct {
	cash      float64
	inventory map[string]int64
	limits    map[string]int64
}

// NewLedger creates a ledger with the given starting cash and immutable
// per-product position limits.
func NewLedger(startCash float64, limits map[string]int64) *Ledger {
	l := &Ledger{
		cash:      startCash,
		inventory: make(map[string]int64),
		limits:    make(map[string]int64, len(limits)),
	}
	for p, lim := range limits {
		l.limits[p] = lim
	}
	return l
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Inventory returns the signed position in product; unseen products are flat.
func (l *Ledger) Inventory(product string) int64 {
	return l.inventory[product]
}

// Limit returns the position limit for product, 0 when unconfigured.
func (l *Ledger) Limit(product string) int64 {
	return l.limits[product]
}

// Positions returns a copy of all non-flat positions.
func (l *Ledger) Positions() map[string]int64 {
	out := make(map[string]int64, len(l.inventory))
	for p, q := range l.inventory {
		if q != 0 {
			out[p] = q
		}
	}
	return out
}

// CapacityToBuy returns how many more units the strategy may buy before
// hitting the long limit, clamped at zero.
func (l *Ledger) CapacityToBuy(product string) int64 {
	c := l.limits[product] - l.inventory[product]
	if c < 0 {
		return 0
	}
	return c
}

// CapacityToSell returns how many more units the strategy may sell before
// hitting the short limit, clamped at zero.
func (l *Ledger) CapacityToSell(product string) int64 {
	c := l.limits[product] + l.inventory[product]
	if c < 0 {
		return 0
	}
	return c
}

// apply commits one fill: a buy adds inventory and pays cash, a sell removes
// inventory and collects cash. Callers clamp quantity to capacity first;
// this is the only mutation path for cash and inventory.
func (l *Ledger) apply(product string, side domain.Side, price, quantity int64) float64 {
	notional := float64(quantity * price)
	if side == domain.SideBuy {
		l.inventory[product] += quantity
		l.cash -= notional
		return -notional
	}
	l.inventory[product] -= quantity
	l.cash += notional
	return notional
}

// MarkToMarket returns cash plus inventory valued at the given mid prices.
// Read-only; products without a mid contribute nothing.
func (l *Ledger) MarkToMarket(mids map[string]float64) float64 {
	pnl := l.cash
	for p, q := range l.inventory {
		pnl += float64(q) * mids[p]
	}
	return pnl
}
