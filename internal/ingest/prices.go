// Package ingest reads recorded market data files and materializes them as
// per-tick, per-product book snapshots and bot order flow. Everything is
// loaded fully up front; the simulation loop only does map lookups.
package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// maxDepthLevels is how many bid/ask level column pairs the prices format
// carries per row.
const maxDepthLevels = 3

// tickInterval is the timestamp spacing between consecutive ticks in the
// recorded data; tick N carries timestamp N*tickInterval.
const tickInterval = 100

// PriceFeed holds a fully parsed prices file, indexed by tick and product.
type PriceFeed struct {
	products []string
	lastTick int64
	snaps    map[int64]map[string]domain.BookSnapshot
}

// ReadPrices parses a semicolon-separated prices file. The header row names
// the columns; the reader only requires "timestamp" and "product" plus any
// of the bid_price_N/bid_volume_N/ask_price_N/ask_volume_N pairs. Rows with
// an empty or zero level cell simply contribute fewer levels.
func ReadPrices(path string) (*PriceFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open prices file: %w", err)
	}
	defer f.Close()

	feed, err := parsePrices(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return feed, nil
}

func parsePrices(r io.Reader) (*PriceFeed, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)

	tsCol, ok := cols["timestamp"]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", "timestamp")
	}
	prodCol, ok := cols["product"]
	if !ok {
		return nil, fmt.Errorf("missing required column %q", "product")
	}

	feed := &PriceFeed{snaps: make(map[int64]map[string]domain.BookSnapshot)}
	seen := make(map[string]bool)

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseCell(row, tsCol)
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		product := strings.TrimSpace(field(row, prodCol))
		if product == "" {
			return nil, fmt.Errorf("line %d: empty product", line)
		}
		if ts%tickInterval != 0 {
			return nil, fmt.Errorf("line %d: timestamp %d not on a %d boundary", line, ts, tickInterval)
		}
		tick := ts / tickInterval

		snap := domain.BookSnapshot{
			Product:   product,
			Tick:      tick,
			Timestamp: time.Unix(0, ts*int64(time.Millisecond)),
		}
		for i := 1; i <= maxDepthLevels; i++ {
			if lvl, ok := readLevel(row, cols, "bid", i); ok {
				snap.Bids = append(snap.Bids, lvl)
			}
			if lvl, ok := readLevel(row, cols, "ask", i); ok {
				snap.Asks = append(snap.Asks, lvl)
			}
		}
		sort.Slice(snap.Bids, func(a, b int) bool { return snap.Bids[a].Price > snap.Bids[b].Price })
		sort.Slice(snap.Asks, func(a, b int) bool { return snap.Asks[a].Price < snap.Asks[b].Price })

		byProduct, ok := feed.snaps[tick]
		if !ok {
			byProduct = make(map[string]domain.BookSnapshot)
			feed.snaps[tick] = byProduct
		}
		byProduct[product] = snap

		if !seen[product] {
			seen[product] = true
			feed.products = append(feed.products, product)
		}
		if tick > feed.lastTick {
			feed.lastTick = tick
		}
	}

	if len(feed.snaps) == 0 {
		return nil, domain.ErrNoData
	}
	sort.Strings(feed.products)
	return feed, nil
}

// Products returns every product symbol seen in the file, sorted.
func (f *PriceFeed) Products() []string {
	out := make([]string, len(f.products))
	copy(out, f.products)
	return out
}

// LastTick returns the highest tick index present in the file.
func (f *PriceFeed) LastTick() int64 {
	return f.lastTick
}

// Snapshot returns the book snapshot for product at tick. A missing
// tick/product combination yields an empty snapshot, not an error; the
// simulation runs on empty books and produces zero fills.
func (f *PriceFeed) Snapshot(product string, tick int64) domain.BookSnapshot {
	if byProduct, ok := f.snaps[tick]; ok {
		if snap, ok := byProduct[product]; ok {
			return snap
		}
	}
	return domain.BookSnapshot{Product: product, Tick: tick}
}

// columnIndex maps lower-cased header names to their positions.
func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

// readLevel extracts one bid/ask level pair from the row. Levels with a
// missing column, empty cell, or non-positive volume are skipped.
func readLevel(row []string, cols map[string]int, side string, n int) (domain.PriceLevel, bool) {
	pCol, ok := cols[fmt.Sprintf("%s_price_%d", side, n)]
	if !ok {
		return domain.PriceLevel{}, false
	}
	vCol, ok := cols[fmt.Sprintf("%s_volume_%d", side, n)]
	if !ok {
		return domain.PriceLevel{}, false
	}
	price, err := parseCell(row, pCol)
	if err != nil || price <= 0 {
		return domain.PriceLevel{}, false
	}
	volume, err := parseCell(row, vCol)
	if err != nil || volume <= 0 {
		return domain.PriceLevel{}, false
	}
	return domain.PriceLevel{Price: price, Quantity: volume}, true
}

func field(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// parseCell reads an integer cell, tolerating float formatting ("10002.0")
// which some exporters produce for price columns.
func parseCell(row []string, i int) (int64, error) {
	cell := strings.TrimSpace(field(row, i))
	if cell == "" {
		return 0, fmt.Errorf("empty cell")
	}
	if n, err := strconv.ParseInt(cell, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
