// Package bus implements the internal tick bus: a multi-subscriber,
// at-least-once pub/sub primitive keyed by channel name.
package bus

import (
	"sync"

	"github.com/khanbekov/market-pulse/internal/model"
)

// Handler receives ticks published to a channel. Publish invokes the
// channel's handlers one after another on the publisher's goroutine, so a
// slow handler delays the remaining handlers on that channel and the
// publisher itself; subscriptions have no delivery goroutine of their own.
type Handler func(tick model.Tick)

// Bus is a named-channel pub/sub bus for Tick messages. The zero value is
// not usable; construct with New.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string]map[int]Handler
	nextID      int
}

// New creates an empty Bus. Tests should construct a fresh instance per
// spec §9 ("Tests must inject a fresh instance").
func New() *Bus {
	return &Bus{
		subscribers: make(map[string]map[int]Handler),
	}
}

// Subscribe registers handler on channel and returns a token that Unsubscribe
// accepts to remove it again.
func (b *Bus) Subscribe(channel string, handler Handler) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subscribers[channel] == nil {
		b.subscribers[channel] = make(map[int]Handler)
	}
	b.nextID++
	id := b.nextID
	b.subscribers[channel][id] = handler
	return id
}

// Unsubscribe removes the handler previously returned by Subscribe. It is a
// no-op if the token is unknown.
func (b *Bus) Unsubscribe(channel string, token int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	handlers, ok := b.subscribers[channel]
	if !ok {
		return
	}
	delete(handlers, token)
	if len(handlers) == 0 {
		delete(b.subscribers, channel)
	}
}

// Publish delivers tick to every handler currently subscribed to channel.
// Delivery is at-least-once and synchronous per handler: a handler that
// blocks delays only the remaining handlers on this channel, never other
// channels. Handlers are invoked under a snapshot of the subscriber set
// taken at publish time, so a handler registering/unregistering mid-publish
// cannot deadlock against Publish's own lock.
func (b *Bus) Publish(channel string, tick model.Tick) {
	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[channel]))
	for _, h := range b.subscribers[channel] {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(tick)
	}
}

// SubscriberCount returns the number of active handlers on channel, for
// diagnostics and tests.
func (b *Bus) SubscriberCount(channel string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[channel])
}
