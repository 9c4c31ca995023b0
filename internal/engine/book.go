// Package engine implements the order-matching core of the simulator: the
// per-product price-level books, the portfolio ledger with position-limit
// capacity, the matcher that crosses strategy orders against the replayed
// market, and the bot-flow processor that merges synthetic counter-party
// liquidity into the same books each tick.
package engine

import (
	"sort"
	"time"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// Book holds resting quantity per price for one side of one product. Prices
// iterate in priority order: ascending for the sell side (best ask first),
// descending for the buy side (best bid first).
type Book struct {
	side   domain.Side
	levels map[int64]int64
}

// NewBook returns an empty book for the given side.
func NewBook(side domain.Side) *Book {
	return &Book{side: side, levels: make(map[int64]int64)}
}

// Side returns which side of the market this book holds.
func (b *Book) Side() domain.Side { return b.side }

// BestPrice returns the most competitive resting price: the minimum for a
// sell book, the maximum for a buy book. ok is false when no level has
// positive quantity.
func (b *Book) BestPrice() (price int64, ok bool) {
	for p, q := range b.levels {
		if q <= 0 {
			continue
		}
		if !ok {
			price, ok = p, true
			continue
		}
		if b.side == domain.SideSell && p < price {
			price = p
		}
		if b.side == domain.SideBuy && p > price {
			price = p
		}
	}
	return price, ok
}

// QuantityAt returns the resting quantity at price. Absent levels are zero.
func (b *Book) QuantityAt(price int64) int64 {
	return b.levels[price]
}

// Add adjusts the resting quantity at price by delta, which may be negative
// to consume liquidity. A level whose quantity drops to or below zero is
// removed so that no zero-quantity level is observable after the call.
func (b *Book) Add(price, delta int64) {
	q := b.levels[price] + delta
	if q <= 0 {
		delete(b.levels, price)
		return
	}
	b.levels[price] = q
}

// Set stores the raw quantity at price, keeping zero entries as-is. It is
// used when merging ingested snapshots, which may report empty levels; a
// later Compact sweeps those away.
func (b *Book) Set(price, quantity int64) {
	b.levels[price] = quantity
}

// Compact removes every level without positive quantity. Idempotent.
func (b *Book) Compact() {
	for p, q := range b.levels {
		if q <= 0 {
			delete(b.levels, p)
		}
	}
}

// Len returns the number of stored levels, counting any not-yet-compacted
// zero entries.
func (b *Book) Len() int { return len(b.levels) }

// Prices returns every stored price in priority order.
func (b *Book) Prices() []int64 {
	out := make([]int64, 0, len(b.levels))
	for p := range b.levels {
		out = append(out, p)
	}
	if b.side == domain.SideSell {
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	}
	return out
}

// Levels returns the book as price levels in priority order, skipping
// non-positive quantities.
func (b *Book) Levels() []domain.PriceLevel {
	out := make([]domain.PriceLevel, 0, len(b.levels))
	for _, p := range b.Prices() {
		if q := b.levels[p]; q > 0 {
			out = append(out, domain.PriceLevel{Price: p, Quantity: q})
		}
	}
	return out
}

// ProductBook pairs the two sides of one product's book.
type ProductBook struct {
	Bids *Book
	Asks *Book
}

// Side returns the requested half of the product book.
func (pb *ProductBook) Side(s domain.Side) *Book {
	if s == domain.SideBuy {
		return pb.Bids
	}
	return pb.Asks
}

// Depth owns the books of every product in a simulation. Products spring
// into existence as empty books on first access, so an unseen product reads
// as zero liquidity rather than an error.
type Depth struct {
	books map[string]*ProductBook
}

// NewDepth returns an empty Depth.
func NewDepth() *Depth {
	return &Depth{books: make(map[string]*ProductBook)}
}

// Product returns the two-sided book for product, creating it when absent.
func (d *Depth) Product(product string) *ProductBook {
	pb, ok := d.books[product]
	if !ok {
		pb = &ProductBook{
			Bids: NewBook(domain.SideBuy),
			Asks: NewBook(domain.SideSell),
		}
		d.books[product] = pb
	}
	return pb
}

// Book returns one side of one product's book, creating it when absent.
func (d *Depth) Book(product string, side domain.Side) *Book {
	return d.Product(product).Side(side)
}

// Products returns all known products in sorted order.
func (d *Depth) Products() []string {
	out := make([]string, 0, len(d.books))
	for p := range d.books {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Compact prunes zero-quantity levels across every product and side.
func (d *Depth) Compact() {
	for _, pb := range d.books {
		pb.Bids.Compact()
		pb.Asks.Compact()
	}
}

// Merge overwrites the product's levels with those from an ingested
// snapshot, level by level. Existing prices not present in the snapshot are
// left untouched so that liquidity rested by earlier ticks survives.
func (d *Depth) Merge(snap domain.BookSnapshot) {
	pb := d.Product(snap.Product)
	for _, lvl := range snap.Bids {
		pb.Bids.Set(lvl.Price, lvl.Quantity)
	}
	for _, lvl := range snap.Asks {
		pb.Asks.Set(lvl.Price, lvl.Quantity)
	}
}

// Snapshot captures the product's current book for caches and viewers.
func (d *Depth) Snapshot(product string, tick int64, ts time.Time) domain.BookSnapshot {
	pb := d.Product(product)
	return domain.BookSnapshot{
		Product:   product,
		Tick:      tick,
		Bids:      pb.Bids.Levels(),
		Asks:      pb.Asks.Levels(),
		Timestamp: ts,
	}
}

// Mid returns the product's current mid price, or 0 with an empty book.
func (d *Depth) Mid(product string) float64 {
	pb := d.Product(product)
	bid, hasBid := pb.Bids.BestPrice()
	ask, hasAsk := pb.Asks.BestPrice()
	switch {
	case hasBid && hasAsk:
		return float64(bid+ask) / 2
	case hasBid:
		return float64(bid)
	case hasAsk:
		return float64(ask)
	default:
		return 0
	}
}
