package ingest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// BotFeed holds parsed synthetic counter-party flow, grouped per tick. The
// per-tick product order preserves file order, which is also the order the
// flow is applied in.
type BotFeed struct {
	byTick map[int64][]domain.BotOrders
}

// ReadBotFlow parses a semicolon-separated bot flow file with columns
// timestamp;product;side;price;quantity. Side is BUY or SELL; quantity is
// always positive. Rows at the same tick for the same product are merged
// into one BotOrders value, summing quantity at repeated prices.
func ReadBotFlow(path string) (*BotFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ingest: open bot flow file: %w", err)
	}
	defer f.Close()

	feed, err := parseBotFlow(f)
	if err != nil {
		return nil, fmt.Errorf("ingest: %s: %w", path, err)
	}
	return feed, nil
}

func parseBotFlow(r io.Reader) (*BotFeed, error) {
	cr := csv.NewReader(r)
	cr.Comma = ';'
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, name := range []string{"timestamp", "product", "side", "price", "quantity"} {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("missing required column %q", name)
		}
	}

	feed := &BotFeed{byTick: make(map[int64][]domain.BotOrders)}
	// tick -> product -> index into feed.byTick[tick]
	index := make(map[int64]map[string]int)

	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseCell(row, cols["timestamp"])
		if err != nil {
			return nil, fmt.Errorf("line %d: timestamp: %w", line, err)
		}
		if ts%tickInterval != 0 {
			return nil, fmt.Errorf("line %d: timestamp %d not on a %d boundary", line, ts, tickInterval)
		}
		tick := ts / tickInterval

		product := strings.TrimSpace(field(row, cols["product"]))
		if product == "" {
			return nil, fmt.Errorf("line %d: empty product", line)
		}
		price, err := parseCell(row, cols["price"])
		if err != nil {
			return nil, fmt.Errorf("line %d: price: %w", line, err)
		}
		quantity, err := parseCell(row, cols["quantity"])
		if err != nil {
			return nil, fmt.Errorf("line %d: quantity: %w", line, err)
		}
		if price <= 0 || quantity <= 0 {
			return nil, fmt.Errorf("line %d: price and quantity must be positive", line)
		}

		byProduct, ok := index[tick]
		if !ok {
			byProduct = make(map[string]int)
			index[tick] = byProduct
		}
		i, ok := byProduct[product]
		if !ok {
			i = len(feed.byTick[tick])
			byProduct[product] = i
			feed.byTick[tick] = append(feed.byTick[tick], domain.BotOrders{
				Product: product,
				Buys:    make(map[int64]int64),
				Sells:   make(map[int64]int64),
			})
		}

		switch strings.ToUpper(strings.TrimSpace(field(row, cols["side"]))) {
		case "BUY":
			feed.byTick[tick][i].Buys[price] += quantity
		case "SELL":
			feed.byTick[tick][i].Sells[price] += quantity
		default:
			return nil, fmt.Errorf("line %d: side must be BUY or SELL", line)
		}
	}

	return feed, nil
}

// Orders returns the bot flow for tick in file order. A tick with no flow
// yields nil.
func (f *BotFeed) Orders(tick int64) []domain.BotOrders {
	return f.byTick[tick]
}
