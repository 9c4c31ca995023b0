package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// BookCache implements domain.BookCache using Redis sorted sets and hashes
// for each product's live book.
//
// Key schema:
//
//	book:{product}:bids     - sorted set of bid prices (score = price)
//	book:{product}:asks     - sorted set of ask prices (score = price)
//	book:{product}:bid:size - hash mapping price -> quantity for bids
//	book:{product}:ask:size - hash mapping price -> quantity for asks
//	book:{product}:bbo      - hash with fields "bid" and "ask" (best prices)
//	book:{product}:meta     - hash with "tick" and "ts" fields
type BookCache struct {
	rdb *redis.Client
}

// NewBookCache creates a BookCache backed by the given Client.
func NewBookCache(c *Client) *BookCache {
	return &BookCache{rdb: c.Underlying()}
}

func bookBidsKey(product string) string    { return "book:" + product + ":bids" }
func bookAsksKey(product string) string    { return "book:" + product + ":asks" }
func bookBidSizeKey(product string) string { return "book:" + product + ":bid:size" }
func bookAskSizeKey(product string) string { return "book:" + product + ":ask:size" }
func bookBBOKey(product string) string     { return "book:" + product + ":bbo" }
func bookMetaKey(product string) string    { return "book:" + product + ":meta" }

// SetSnapshot atomically replaces the cached book snapshot for a product.
// It clears existing data and repopulates the sorted sets, size hashes, the
// BBO hash, and the metadata hash.
func (bc *BookCache) SetSnapshot(ctx context.Context, product string, snap domain.BookSnapshot) error {
	bidsKey := bookBidsKey(product)
	asksKey := bookAsksKey(product)
	bidSizeKey := bookBidSizeKey(product)
	askSizeKey := bookAskSizeKey(product)
	bboKey := bookBBOKey(product)
	metaKey := bookMetaKey(product)

	pipe := bc.rdb.TxPipeline()

	pipe.Del(ctx, bidsKey, asksKey, bidSizeKey, askSizeKey, bboKey, metaKey)

	for _, lvl := range snap.Bids {
		priceStr := strconv.FormatInt(lvl.Price, 10)
		pipe.ZAdd(ctx, bidsKey, redis.Z{Score: float64(lvl.Price), Member: priceStr})
		pipe.HSet(ctx, bidSizeKey, priceStr, strconv.FormatInt(lvl.Quantity, 10))
	}
	for _, lvl := range snap.Asks {
		priceStr := strconv.FormatInt(lvl.Price, 10)
		pipe.ZAdd(ctx, asksKey, redis.Z{Score: float64(lvl.Price), Member: priceStr})
		pipe.HSet(ctx, askSizeKey, priceStr, strconv.FormatInt(lvl.Quantity, 10))
	}

	if bid := snap.BestBid(); bid > 0 {
		pipe.HSet(ctx, bboKey, "bid", strconv.FormatInt(bid, 10))
	}
	if ask := snap.BestAsk(); ask > 0 {
		pipe.HSet(ctx, bboKey, "ask", strconv.FormatInt(ask, 10))
	}

	pipe.HSet(ctx, metaKey,
		"tick", strconv.FormatInt(snap.Tick, 10),
		"ts", strconv.FormatInt(snap.Timestamp.UnixNano(), 10),
	)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set book snapshot %s: %w", product, err)
	}
	return nil
}

// GetSnapshot reconstructs a full BookSnapshot from Redis. It returns
// domain.ErrNotFound when no snapshot exists for the product.
func (bc *BookCache) GetSnapshot(ctx context.Context, product string) (domain.BookSnapshot, error) {
	pipe := bc.rdb.Pipeline()

	bidsCmd := pipe.ZRevRangeWithScores(ctx, bookBidsKey(product), 0, -1)
	asksCmd := pipe.ZRangeWithScores(ctx, bookAsksKey(product), 0, -1)
	bidSizeCmd := pipe.HGetAll(ctx, bookBidSizeKey(product))
	askSizeCmd := pipe.HGetAll(ctx, bookAskSizeKey(product))
	metaCmd := pipe.HGetAll(ctx, bookMetaKey(product))

	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return domain.BookSnapshot{}, fmt.Errorf("redis: get book snapshot %s: %w", product, err)
	}

	meta := metaCmd.Val()
	if len(meta) == 0 {
		return domain.BookSnapshot{}, fmt.Errorf("redis: book snapshot %s: %w", product, domain.ErrNotFound)
	}

	snap := domain.BookSnapshot{
		Product: product,
		Bids:    levelsFrom(bidsCmd.Val(), bidSizeCmd.Val()),
		Asks:    levelsFrom(asksCmd.Val(), askSizeCmd.Val()),
	}
	if tick, err := strconv.ParseInt(meta["tick"], 10, 64); err == nil {
		snap.Tick = tick
	}
	if ns, err := strconv.ParseInt(meta["ts"], 10, 64); err == nil {
		snap.Timestamp = time.Unix(0, ns)
	}
	return snap, nil
}

// GetBBO returns the best bid and ask without materializing the full book.
// A missing side reads as 0.
func (bc *BookCache) GetBBO(ctx context.Context, product string) (bestBid, bestAsk int64, err error) {
	vals, err := bc.rdb.HGetAll(ctx, bookBBOKey(product)).Result()
	if err != nil {
		return 0, 0, fmt.Errorf("redis: get bbo %s: %w", product, err)
	}
	if len(vals) == 0 {
		return 0, 0, fmt.Errorf("redis: bbo %s: %w", product, domain.ErrNotFound)
	}
	bestBid, _ = strconv.ParseInt(vals["bid"], 10, 64)
	bestAsk, _ = strconv.ParseInt(vals["ask"], 10, 64)
	return bestBid, bestAsk, nil
}

// levelsFrom joins a price sorted-set range with its size hash, keeping the
// range's order.
func levelsFrom(zs []redis.Z, sizes map[string]string) []domain.PriceLevel {
	var levels []domain.PriceLevel
	for _, z := range zs {
		member, ok := z.Member.(string)
		if !ok {
			continue
		}
		price, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		qty, err := strconv.ParseInt(sizes[member], 10, 64)
		if err != nil || qty <= 0 {
			continue
		}
		levels = append(levels, domain.PriceLevel{Price: price, Quantity: qty})
	}
	return levels
}

// Compile-time interface check.
var _ domain.BookCache = (*BookCache)(nil)
