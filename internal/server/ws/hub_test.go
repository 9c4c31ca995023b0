package ws

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alanyoungcy/ticksim/internal/domain"
)

// chanBus is an in-memory SignalBus that hands every subscriber the same
// message stream, tagged with whatever channel the test publishes on.
type chanBus struct {
	mu   sync.Mutex
	subs []chan domain.Message
}

func (b *chanBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		ch <- domain.Message{Channel: channel, Payload: payload}
	}
	return nil
}

func (b *chanBus) Subscribe(context.Context, string) (<-chan domain.Message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch := make(chan domain.Message, 8)
	b.subs = append(b.subs, ch)
	return ch, nil
}

// waitSubscribed blocks until the hub's subscriber goroutine has attached.
func (b *chanBus) waitSubscribed(t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		b.mu.Lock()
		n := len(b.subs)
		b.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("hub never subscribed to the bus")
}

func testClient(h *Hub, channels ...string) *client {
	c := &client{
		hub:  h,
		send: make(chan []byte, sendBufferSize),
		subs: make(map[string]bool),
	}
	for _, ch := range channels {
		c.subs[ch] = true
	}
	return c
}

func recv(t *testing.T, c *client) []byte {
	t.Helper()
	select {
	case data := <-c.send:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for broadcast")
		return nil
	}
}

func TestHubRoutesByConcreteChannel(t *testing.T) {
	bus := &chanBus{}
	h := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	// One client on the wildcard, one pinned to a single run, one on a
	// different run.
	bus.waitSubscribed(t)

	wild := testClient(h, "ticksim:run:*")
	pinned := testClient(h, "ticksim:run:abc")
	other := testClient(h, "ticksim:run:xyz")
	for _, c := range []*client{wild, pinned, other} {
		h.register <- c
	}

	payload := []byte(`{"tick":1}`)
	if err := bus.Publish(ctx, "ticksim:run:abc", payload); err != nil {
		t.Fatal(err)
	}

	if got := string(recv(t, wild)); got != string(payload) {
		t.Fatalf("wildcard client got %q", got)
	}
	if got := string(recv(t, pinned)); got != string(payload) {
		t.Fatalf("pinned client got %q", got)
	}
	select {
	case data := <-other.send:
		t.Fatalf("client on another run received %q", data)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestClientUnsubscribeStopsDelivery(t *testing.T) {
	bus := &chanBus{}
	h := NewHub(bus, slog.New(slog.NewTextHandler(io.Discard, nil)), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	bus.waitSubscribed(t)

	c := testClient(h, "ticksim:run:*")
	h.register <- c

	// Swap the wildcard for one concrete run, the way a viewer pins a run.
	c.handleSubscription(subscribeMsg{Action: "unsubscribe", Channels: []string{"ticksim:run:*"}})
	c.handleSubscription(subscribeMsg{Action: "subscribe", Channels: []string{"ticksim:run:abc"}})

	if err := bus.Publish(ctx, "ticksim:run:abc", []byte("a")); err != nil {
		t.Fatal(err)
	}
	if got := string(recv(t, c)); got != "a" {
		t.Fatalf("pinned run delivery = %q, want %q", got, "a")
	}

	if err := bus.Publish(ctx, "ticksim:run:xyz", []byte("b")); err != nil {
		t.Fatal(err)
	}
	select {
	case data := <-c.send:
		t.Fatalf("received %q after unsubscribing the wildcard", data)
	case <-time.After(50 * time.Millisecond):
	}
}
