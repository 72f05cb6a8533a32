// Package pubsub implements in-process fan-out of rate points to websocket
// subscribers, keyed by asset symbol.
package pubsub

import (
	"sync"

	"github.com/xenking/assetsrates/internal/domain/asset"
)

// DefaultBuffer is the per-subscriber queue size used when Hub is created
// with a non-positive buffer.
const DefaultBuffer = 100

// Subscription is a single subscriber's view of one channel. Points are
// delivered on C until Close is called. Close is idempotent per subscription
// lifecycle and must be called exactly once by the subscriber.
type Subscription struct {
	C <-chan asset.Point

	hub       *Hub
	symbol    string
	ch        chan asset.Point
	closeOnce sync.Once
}

// Close removes the subscription from its hub. The channel is not closed;
// pending points may still be drained after Close returns.
func (s *Subscription) Close() {
	s.closeOnce.Do(func() {
		s.hub.remove(s)
	})
}

// Hub routes published points to all subscriptions of the matching symbol.
// Publish never blocks: a subscriber whose buffer is full misses that point.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]map[*Subscription]struct{}
	buffer int
}

// NewHub creates a Hub with the given per-subscriber buffer size.
func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		subs:   make(map[string]map[*Subscription]struct{}),
		buffer: buffer,
	}
}

// Subscribe registers a new subscription for the given symbol.
func (h *Hub) Subscribe(symbol string) *Subscription {
	ch := make(chan asset.Point, h.buffer)
	sub := &Subscription{
		C:      ch,
		hub:    h,
		symbol: symbol,
		ch:     ch,
	}

	h.mu.Lock()
	set, ok := h.subs[symbol]
	if !ok {
		set = make(map[*Subscription]struct{})
		h.subs[symbol] = set
	}
	set[sub] = struct{}{}
	h.mu.Unlock()

	return sub
}

// Publish delivers a point to every subscriber of symbol. Subscribers with a
// full buffer are skipped.
func (h *Hub) Publish(symbol string, p asset.Point) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for sub := range h.subs[symbol] {
		select {
		case sub.ch <- p:
		default:
		}
	}
}

// Subscribers reports the current number of subscriptions for symbol.
func (h *Hub) Subscribers(symbol string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[symbol])
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set, ok := h.subs[sub.symbol]
	if !ok {
		return
	}
	delete(set, sub)
	if len(set) == 0 {
		delete(h.subs, sub.symbol)
	}
}
