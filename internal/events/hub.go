package events

import (
	"context"
	"sync"
)

// Hub fans transitions out to live subscribers such as websocket clients.
// A subscriber whose buffer is full misses the transition; Publish never blocks.
type Hub struct {
	mu     sync.Mutex
	subs   map[chan Transition]struct{}
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = 16
	}
	return &Hub{
		subs:   make(map[chan Transition]struct{}),
		buffer: buffer,
	}
}

func (h *Hub) Name() string { return "hub" }

// Subscribe registers a new receiver. The returned cancel func must be called
// once; it unregisters and closes the channel.
func (h *Hub) Subscribe() (<-chan Transition, func()) {
	ch := make(chan Transition, h.buffer)
	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Publish(_ context.Context, t Transition) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- t:
		default:
		}
	}
	return nil
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
