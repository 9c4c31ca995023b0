package domain

import "context"

// BookCache stores the live book state of a running simulation so that
// out-of-process viewers can inspect it without touching the engine.
type BookCache interface {
	SetSnapshot(ctx context.Context, product string, snap BookSnapshot) error
	GetSnapshot(ctx context.Context, product string) (BookSnapshot, error)
	GetBBO(ctx context.Context, product string) (bestBid, bestAsk int64, err error)
}

// Message is one bus delivery. Channel is the concrete channel the payload
// arrived on, which for a pattern subscription differs from the pattern.
type Message struct {
	Channel string
	Payload []byte
}

// SignalBus provides pub/sub fan-out of tick results and run events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan Message, error)
}
