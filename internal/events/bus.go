// Package events provides a lightweight in-process pub/sub broker used to
// stream order outcomes to the websocket layer.
package events

import "sync"

// Event identifies a topic on the bus.
type Event string

const (
	// EventOrderResult carries the result envelope of every order
	// submission, success or failure.
	EventOrderResult Event = "order.result"
)

// Bus is a channel-based broker. Publish never blocks; slow subscribers
// drop messages.
type Bus struct {
	mu   sync.RWMutex
	subs map[Event][]chan any
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Event][]chan any)}
}

// Subscribe registers a listener and returns the channel plus an
// unsubscribe function that closes it.
func (b *Bus) Subscribe(e Event, buffer int) (<-chan any, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan any, buffer)
	b.subs[e] = append(b.subs[e], ch)

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subs[e]
		for i, c := range subs {
			if c == ch {
				close(c)
				b.subs[e] = append(subs[:i], subs[i+1:]...)
				break
			}
		}
	}

	return ch, unsub
}

// Publish fans the payload out to subscribers without blocking.
func (b *Bus) Publish(e Event, payload any) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs[e] {
		select {
		case ch <- payload:
		default:
			// drop if subscriber is slow; keep the broker non-blocking
		}
	}
}
